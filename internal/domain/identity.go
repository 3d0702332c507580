package domain

// AddressFamily groups ledgers that share an address format
type AddressFamily string

const (
	FamilyStellar AddressFamily = "stellar" // ed25519 strkey, G...
	FamilyEVM     AddressFamily = "evm"     // secp256k1 hex address, 0x...
)

// Family returns the address family used to query the ledger
// Ledgers other than stellar are addressed by the EVM identity.
func (l LedgerID) Family() AddressFamily {
	if l == LedgerStellar {
		return FamilyStellar
	}
	return FamilyEVM
}

// Identity holds the public addresses of one wallet, one per address family
type Identity map[AddressFamily]string

// Primary returns the address shown as the account's public key
// The stellar address wins when present, then the EVM address.
func (i Identity) Primary() string {
	if address := i[FamilyStellar]; address != "" {
		return address
	}
	return i[FamilyEVM]
}

// Clone returns an independent copy of the identity
func (i Identity) Clone() Identity {
	out := make(Identity, len(i))
	for family, address := range i {
		out[family] = address
	}
	return out
}
