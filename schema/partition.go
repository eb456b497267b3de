package schema

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash"
	jump "github.com/dgryski/go-jump"
)

type PartitionByMethod uint8

const (
	// partition by the binding id, with the best distribution
	PartitionByOCID PartitionByMethod = iota

	// partition by the counter id, so all objects of one counter land together
	PartitionByCounter
)

var ErrUnknownPartitionMethod = errors.New("unknown partition method")

func PartitionMethodFromString(input string) (PartitionByMethod, error) {
	switch input {
	case "byOCID":
		return PartitionByOCID, nil
	case "byCounter":
		return PartitionByCounter, nil
	}
	return 0, ErrUnknownPartitionMethod
}

// Partition returns the partition in [0, partitions) the binding belongs to.
// Equal keys always map to the same partition and growing the number of
// partitions moves as few keys as possible.
func (o OCID) Partition(partitions int32) int32 {
	return partitionOf(uint64(o), partitions)
}

// PartitionID returns the partition of a binding of the given counter.
func PartitionID(method PartitionByMethod, ocid OCID, counterID uint64, partitions int32) (int32, error) {
	switch method {
	case PartitionByOCID:
		return ocid.Partition(partitions), nil
	case PartitionByCounter:
		return partitionOf(counterID, partitions), nil
	}
	return 0, ErrUnknownPartitionMethod
}

func partitionOf(key uint64, partitions int32) int32 {
	if partitions <= 1 {
		return 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h := xxhash.New()
	h.Write(buf[:])
	return jump.Hash(h.Sum64(), int(partitions))
}
