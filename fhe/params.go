package fhe

import (
	"errors"
	"fmt"

	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

const (
	DefaultLogN = 12

	// DefaultPlaintextModulus is used for LogN 12. It is 1 mod 8192.
	DefaultPlaintextModulus uint64 = 40961

	// LargePlaintextModulus is the default for LogN 13 to 15.
	LargePlaintextModulus uint64 = 65537
)

var (
	ErrParams     = errors.New("invalid encryption parameters")
	ErrMissingKey = errors.New("missing key material")
)

// Params selects the ring degree and plaintext modulus of a Context.
type Params struct {
	LogN             int    `json:"log_n"`
	PlaintextModulus uint64 `json:"plaintext_modulus"`
}

// WithDefaults fills zero fields.
func (p Params) WithDefaults() Params {
	if p.LogN == 0 {
		p.LogN = DefaultLogN
	}
	if p.PlaintextModulus == 0 {
		if p.LogN == 12 {
			p.PlaintextModulus = DefaultPlaintextModulus
		} else {
			p.PlaintextModulus = LargePlaintextModulus
		}
	}
	return p
}

// Validate checks that the plaintext modulus allows full slot batching for
// the ring degree, i.e. t = 1 mod 2N.
func (p Params) Validate() error {
	if p.LogN < 12 || p.LogN > 15 {
		return fmt.Errorf("%w: unsupported logN %d (use 12, 13, 14, or 15)", ErrParams, p.LogN)
	}
	twoN := uint64(2) << uint(p.LogN)
	if p.PlaintextModulus < 3 || (p.PlaintextModulus-1)%twoN != 0 {
		return fmt.Errorf("%w: plaintext modulus %d is not 1 mod %d", ErrParams, p.PlaintextModulus, twoN)
	}
	return nil
}

// literal returns the BGV parameters for p. The modulus chains leave room
// for a single ciphertext product summed over up to N/2 terms.
func (p Params) literal() (bgv.ParametersLiteral, error) {
	lit := bgv.ParametersLiteral{
		LogN:             p.LogN,
		PlaintextModulus: p.PlaintextModulus,
	}
	switch p.LogN {
	case 12:
		lit.LogQ = []int{54, 54}
		lit.LogP = []int{55}
	case 13:
		lit.LogQ = []int{54, 54, 54}
		lit.LogP = []int{55}
	case 14:
		lit.LogQ = []int{54, 54, 54, 54, 54, 54}
		lit.LogP = []int{55, 55}
	case 15:
		lit.LogQ = []int{58, 54, 54, 54, 54, 54, 54, 54, 54, 54}
		lit.LogP = []int{58, 58}
	default:
		return lit, fmt.Errorf("%w: unsupported logN %d (use 12, 13, 14, or 15)", ErrParams, p.LogN)
	}
	return lit, nil
}
