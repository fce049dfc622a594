package chain

import (
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// Shelley address header types (high nibble of the first byte).
// Odd types carry a script payment credential.
const (
	addrTypeKeyKey       = 0x0
	addrTypeScriptKey    = 0x1
	addrTypeKeyScript    = 0x2
	addrTypeScriptScript = 0x3
	addrTypeKeyOnly      = 0x6
	addrTypeScriptOnly   = 0x7
	addrTypeByron        = 0x8
)

// mainnetNetworkID is the network discriminant in the low nibble.
const mainnetNetworkID = 0x1

const credentialHashLen = 28

// Credential is a payment or stake credential: a 28-byte hash plus a
// flag for whether it identifies a script.
type Credential struct {
	Hash     string // hex-encoded 28-byte hash
	IsScript bool
}

// RawAddress is the raw serialized form of an output address.
type RawAddress []byte

// IsByron reports whether the address is a Byron-era bootstrap address.
// Bootstrap addresses are key-controlled and never carry a script.
func (a RawAddress) IsByron() bool {
	return len(a) > 0 && a[0]>>4 == addrTypeByron
}

// PaymentCredential extracts the payment credential from a Shelley
// address. Returns ok=false for Byron, malformed or empty addresses.
func (a RawAddress) PaymentCredential() (Credential, bool) {
	if len(a) < 1+credentialHashLen || a.IsByron() {
		return Credential{}, false
	}
	addrType := a[0] >> 4
	switch addrType {
	case addrTypeKeyKey, addrTypeScriptKey, addrTypeKeyScript, addrTypeScriptScript, addrTypeKeyOnly, addrTypeScriptOnly:
	default:
		return Credential{}, false
	}
	return Credential{
		Hash:     hex.EncodeToString(a[1 : 1+credentialHashLen]),
		IsScript: addrType&0x1 == 0x1,
	}, true
}

// StakeCredential extracts the delegation credential from a base
// address. Returns ok=false for enterprise and Byron addresses.
func (a RawAddress) StakeCredential() (Credential, bool) {
	if len(a) < 1+2*credentialHashLen || a.IsByron() {
		return Credential{}, false
	}
	addrType := a[0] >> 4
	switch addrType {
	case addrTypeKeyKey, addrTypeScriptKey, addrTypeKeyScript, addrTypeScriptScript:
	default:
		return Credential{}, false
	}
	return Credential{
		Hash:     hex.EncodeToString(a[1+credentialHashLen : 1+2*credentialHashLen]),
		IsScript: addrType>>1 == 0x1,
	}, true
}

// String renders the address for logs: Byron addresses in their
// conventional base58 form, Shelley addresses as hex.
func (a RawAddress) String() string {
	if a.IsByron() {
		return base58.Encode(a)
	}
	return hex.EncodeToString(a)
}

// Equal compares raw address bytes.
func (a RawAddress) Equal(other RawAddress) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i] != other[i] {
			return false
		}
	}
	return true
}

// BuildAddress assembles a mainnet Shelley address from credentials.
// A nil stake credential yields an enterprise address.
func BuildAddress(payment Credential, stake *Credential) (RawAddress, bool) {
	payHash, err := hex.DecodeString(payment.Hash)
	if err != nil || len(payHash) != credentialHashLen {
		return nil, false
	}

	var addrType byte
	if stake == nil {
		addrType = addrTypeKeyOnly
	} else {
		addrType = addrTypeKeyKey
		if stake.IsScript {
			addrType = addrTypeKeyScript
		}
	}
	if payment.IsScript {
		addrType |= 0x1
	}

	raw := []byte{addrType<<4 | mainnetNetworkID}
	raw = append(raw, payHash...)

	if stake != nil {
		stakeHash, err := hex.DecodeString(stake.Hash)
		if err != nil || len(stakeHash) != credentialHashLen {
			return nil, false
		}
		raw = append(raw, stakeHash...)
	}
	return raw, true
}
