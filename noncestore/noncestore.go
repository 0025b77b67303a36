/*
Package noncestore keeps the (amount, nonce) pairs behind unrevealed bid
commitments in an encrypted file, so a bidder can reveal a bid committed by
an earlier process. Losing the pair makes the commitment unopenable, and
overwriting it would silently break an existing commitment, so Put refuses
to replace a stored secret.

The file layout follows the go-ethereum keystore: an scrypt derived key
encrypting the payload with AES-256-GCM, written with 0600 permissions.
*/
package noncestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"sort"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/hermeznetwork/tracerr"
	"github.com/procurenet/tender-node/common"
	"github.com/procurenet/tender-node/common/apitypes"
	"golang.org/x/crypto/scrypt"
)

// Scrypt parameters, same profiles as the go-ethereum keystore
const (
	StandardScryptN = 1 << 18
	StandardScryptP = 1
	LightScryptN    = 1 << 12
	LightScryptP    = 6

	scryptR     = 8
	scryptDKLen = 32
)

// ErrSecretExists is used when Put would overwrite a stored secret
var ErrSecretExists = errors.New("a secret for this tender and bidder is already stored")

// ErrSecretNotFound is used when no secret is stored for the requested
// tender and bidder
var ErrSecretNotFound = errors.New("no secret stored for this tender and bidder")

// ErrDecrypt is used when the store cannot be decrypted, usually because
// the password is wrong
var ErrDecrypt = errors.New("could not decrypt the nonce store, wrong password?")

// Secret is the opening of one bid commitment
type Secret struct {
	TenderID common.TenderID
	Bidder   ethCommon.Address
	Amount   *big.Int
	Nonce    []byte
}

// Store is an encrypted file holding bid commitment secrets
type Store struct {
	path     string
	password string
	scryptN  int
	scryptP  int
}

// New creates a Store reading and writing the file at path. The file is
// created on the first Put. lightScrypt selects the light key derivation
// profile and is only meant for tests.
func New(path, password string, lightScrypt bool) *Store {
	scryptN := StandardScryptN
	scryptP := StandardScryptP
	if lightScrypt {
		scryptN = LightScryptN
		scryptP = LightScryptP
	}
	return &Store{
		path:     path,
		password: password,
		scryptN:  scryptN,
		scryptP:  scryptP,
	}
}

type secretJSON struct {
	TenderID common.TenderID   `json:"tenderId"`
	Bidder   ethCommon.Address `json:"bidder"`
	Amount   string            `json:"amount"`
	Nonce    apitypes.HexBytes `json:"nonce"`
}

type kdfParamsJSON struct {
	N     int               `json:"n"`
	R     int               `json:"r"`
	P     int               `json:"p"`
	DKLen int               `json:"dklen"`
	Salt  apitypes.HexBytes `json:"salt"`
}

type storeJSON struct {
	Version    int               `json:"version"`
	KDF        string            `json:"kdf"`
	KDFParams  kdfParamsJSON     `json:"kdfparams"`
	CipherName string            `json:"cipher"`
	GCMNonce   apitypes.HexBytes `json:"ciphernonce"`
	Ciphertext apitypes.HexBytes `json:"ciphertext"`
}

func secretKey(id common.TenderID, bidder ethCommon.Address) string {
	return fmt.Sprintf("%v:%v", id, bidder.Hex())
}

// Put stores the secret behind a new bid commitment. It fails with
// ErrSecretExists if a secret for the same tender and bidder is already
// stored.
func (s *Store) Put(secret Secret) error {
	if secret.Amount == nil || secret.Amount.Sign() <= 0 {
		return tracerr.Wrap(errors.New("amount must be a positive integer"))
	}
	if len(secret.Nonce) == 0 {
		return tracerr.Wrap(common.ErrEmptyNonce)
	}
	secrets, err := s.load()
	if err != nil {
		return tracerr.Wrap(err)
	}
	key := secretKey(secret.TenderID, secret.Bidder)
	if _, ok := secrets[key]; ok {
		return tracerr.Wrap(ErrSecretExists)
	}
	secrets[key] = secretJSON{
		TenderID: secret.TenderID,
		Bidder:   secret.Bidder,
		Amount:   secret.Amount.String(),
		Nonce:    apitypes.HexBytes(secret.Nonce),
	}
	return tracerr.Wrap(s.save(secrets))
}

// Get returns the stored secret for the tender and bidder
func (s *Store) Get(id common.TenderID, bidder ethCommon.Address) (*Secret, error) {
	secrets, err := s.load()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	stored, ok := secrets[secretKey(id, bidder)]
	if !ok {
		return nil, tracerr.Wrap(ErrSecretNotFound)
	}
	secret, err := stored.toSecret()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return secret, nil
}

// List returns all stored secrets ordered by tender and bidder
func (s *Store) List() ([]Secret, error) {
	stored, err := s.load()
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	secrets := make([]Secret, 0, len(stored))
	for _, sj := range stored {
		secret, err := sj.toSecret()
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		secrets = append(secrets, *secret)
	}
	sort.Slice(secrets, func(i, j int) bool {
		if secrets[i].TenderID != secrets[j].TenderID {
			return secrets[i].TenderID < secrets[j].TenderID
		}
		return secrets[i].Bidder.Hex() < secrets[j].Bidder.Hex()
	})
	return secrets, nil
}

func (sj secretJSON) toSecret() (*Secret, error) {
	amount, ok := new(big.Int).SetString(sj.Amount, 10)
	if !ok {
		return nil, tracerr.Wrap(fmt.Errorf("invalid stored amount %q", sj.Amount))
	}
	return &Secret{
		TenderID: sj.TenderID,
		Bidder:   sj.Bidder,
		Amount:   amount,
		Nonce:    []byte(sj.Nonce),
	}, nil
}

func (s *Store) load() (map[string]secretJSON, error) {
	raw, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]secretJSON), nil
	} else if err != nil {
		return nil, tracerr.Wrap(err)
	}
	var stored storeJSON
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, tracerr.Wrap(err)
	}
	if stored.KDF != "scrypt" {
		return nil, tracerr.Wrap(fmt.Errorf("unsupported kdf %q", stored.KDF))
	}
	derived, err := scrypt.Key([]byte(s.password), []byte(stored.KDFParams.Salt),
		stored.KDFParams.N, stored.KDFParams.R, stored.KDFParams.P,
		stored.KDFParams.DKLen)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	plaintext, err := gcm.Open(nil, []byte(stored.GCMNonce),
		[]byte(stored.Ciphertext), nil)
	if err != nil {
		return nil, tracerr.Wrap(ErrDecrypt)
	}
	secrets := make(map[string]secretJSON)
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return secrets, nil
}

func (s *Store) save(secrets map[string]secretJSON) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return tracerr.Wrap(err)
	}
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return tracerr.Wrap(err)
	}
	derived, err := scrypt.Key([]byte(s.password), salt,
		s.scryptN, scryptR, s.scryptP, scryptDKLen)
	if err != nil {
		return tracerr.Wrap(err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return tracerr.Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return tracerr.Wrap(err)
	}
	gcmNonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(gcmNonce); err != nil {
		return tracerr.Wrap(err)
	}
	ciphertext := gcm.Seal(nil, gcmNonce, plaintext, nil)
	stored := storeJSON{
		Version: 1,
		KDF:     "scrypt",
		KDFParams: kdfParamsJSON{
			N:     s.scryptN,
			R:     scryptR,
			P:     s.scryptP,
			DKLen: scryptDKLen,
			Salt:  apitypes.HexBytes(salt),
		},
		CipherName: "aes-256-gcm",
		GCMNonce:   apitypes.HexBytes(gcmNonce),
		Ciphertext: apitypes.HexBytes(ciphertext),
	}
	raw, err := json.Marshal(&stored)
	if err != nil {
		return tracerr.Wrap(err)
	}
	// Write to a sibling temp file first so a crash mid write cannot
	// truncate the store
	tmp, err := ioutil.TempFile(filepath.Dir(s.path), "noncestore-*.tmp")
	if err != nil {
		return tracerr.Wrap(err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return tracerr.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return tracerr.Wrap(err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return tracerr.Wrap(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return tracerr.Wrap(err)
	}
	return nil
}
