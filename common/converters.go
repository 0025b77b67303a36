package common

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
)

// StringToTenderPhase converts a string to a tender phase
func StringToTenderPhase(phaseStr string) (*TenderPhase, error) {
	if phaseStr == "" {
		return nil, nil
	}
	phaseCasted := TenderPhase(phaseStr)
	if !phaseCasted.Valid() {
		return nil, tracerr.Wrap(fmt.Errorf(
			"invalid %s, %s is not a valid option. Check the valid options in the documentation",
			"phase", phaseStr,
		))
	}
	return &phaseCasted, nil
}

// StringToEthAddr converts string to ethereum address
func StringToEthAddr(ethAddrStr string) (*ethCommon.Address, error) {
	if ethAddrStr == "" {
		return nil, nil
	}
	var addr ethCommon.Address
	err := addr.UnmarshalText([]byte(ethAddrStr))
	return &addr, tracerr.Wrap(err)
}
