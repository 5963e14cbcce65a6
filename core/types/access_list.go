package types

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is the transaction-supplied list of addresses and storage
// slots to pre-warm before execution.
type AccessList []AccessTuple

// StorageKeys returns the total number of storage slots in the list.
func (al AccessList) StorageKeys() int {
	n := 0
	for _, tuple := range al {
		n += len(tuple.StorageKeys)
	}
	return n
}
