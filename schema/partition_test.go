package schema

import "testing"

func TestPartitionStable(t *testing.T) {
	for ocid := OCID(1); ocid < 1000; ocid++ {
		p := ocid.Partition(8)
		if p < 0 || p >= 8 {
			t.Fatalf("ocid %d: partition %d out of range", ocid, p)
		}
		if again := ocid.Partition(8); again != p {
			t.Fatalf("ocid %d: partition changed from %d to %d", ocid, p, again)
		}
	}
}

func TestPartitionSingle(t *testing.T) {
	if p := OCID(42).Partition(1); p != 0 {
		t.Fatalf("expected partition 0, got %d", p)
	}
}

func TestPartitionDistribution(t *testing.T) {
	counts := make([]int, 4)
	for ocid := OCID(1); ocid <= 4000; ocid++ {
		counts[ocid.Partition(4)]++
	}
	for p, c := range counts {
		if c < 800 || c > 1200 {
			t.Errorf("partition %d got %d of 4000 keys", p, c)
		}
	}
}

// growing from n to n+1 partitions only moves keys into the new partition
func TestPartitionGrowth(t *testing.T) {
	for ocid := OCID(1); ocid <= 1000; ocid++ {
		before := ocid.Partition(4)
		after := ocid.Partition(5)
		if before != after && after != 4 {
			t.Fatalf("ocid %d moved from %d to %d", ocid, before, after)
		}
	}
}

func TestPartitionID(t *testing.T) {
	p1, err := PartitionID(PartitionByCounter, 1, 77, 16)
	if err != nil {
		t.Fatal(err)
	}
	p2, _ := PartitionID(PartitionByCounter, 2, 77, 16)
	if p1 != p2 {
		t.Fatalf("bindings of one counter should share a partition, got %d and %d", p1, p2)
	}
	if _, err := PartitionID(PartitionByMethod(9), 1, 1, 16); err != ErrUnknownPartitionMethod {
		t.Fatalf("expected ErrUnknownPartitionMethod, got %v", err)
	}
}
