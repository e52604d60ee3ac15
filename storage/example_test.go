package storage_test

import (
	"fmt"

	"github.com/viert/slotstore/storage"
)

func Example() {
	mb := storage.NewMemBackend()
	st, err := storage.CreateOn(mb, 8)
	if err != nil {
		panic(err)
	}

	record := []byte("hello, slotted world")
	plan := st.PlanWrite(len(record))
	for i, chunk := range st.Chunks(record) {
		if _, err := st.WriteBlock(plan[i], chunk); err != nil {
			panic(err)
		}
	}
	fmt.Println("slots:", plan)

	st.DeleteBlock(plan[1], true)
	fmt.Println("free:", st.FreeSlots())

	reopened, err := storage.OpenOn(mb)
	if err != nil {
		panic(err)
	}
	_, data, _ := reopened.ReadBlock(plan[2])
	fmt.Printf("slot %d: %q\n", plan[2], data)
	fmt.Println("end:", reopened.EndSlotCount(), "free:", reopened.FreeSlots())

	// Output:
	// slots: [0 1 2]
	// free: [1]
	// slot 2: "orld"
	// end: 3 free: [1]
}
