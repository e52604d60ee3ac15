package main

import (
	"fmt"
	"os"

	"github.com/viert/slotstore/storage"
)

// createFlags make argparse refuse to reuse an existing file
const createFlags = os.O_CREATE | os.O_WRONLY | os.O_EXCL

// createStorage initializes a slotstore in f, a file the caller has
// just created exclusively. f itself is closed.
func createStorage(f *os.File, slotCapacity int) (*storage.Storage, error) {
	f.Close()
	if slotCapacity < storage.MinSlotCapacity || slotCapacity > storage.MaxSlotCapacity {
		return nil, fmt.Errorf("slot size can not be less than %d or greater than %d",
			storage.MinSlotCapacity, storage.MaxSlotCapacity)
	}
	return storage.Create(f.Name(), uint32(slotCapacity))
}

func runCreate(f *os.File, slotCapacity int) {
	st, err := createStorage(f, slotCapacity)
	if err != nil {
		os.Remove(f.Name())
		log.Fatalf("error creating storage: %s", err)
	}
	defer st.Close()

	fi, err := os.Stat(f.Name())
	if err != nil {
		log.Fatalf("error getting file stat: %s", err)
	}
	fmt.Printf("Storage created.\nFile size:     %d bytes\nSlot capacity: %d\n", fi.Size(), st.SlotCapacity())
}

func runInfo(filename string) {
	st, err := storage.Open(filename)
	if err != nil {
		log.Fatalf("error opening storage: %s", err)
	}
	defer st.Close()

	fmt.Printf("Slot capacity: %d\nSlots in use:  %d\nFree slots:    %d\n",
		st.SlotCapacity(), st.EndSlotCount()-uint32(st.NumFree()), st.NumFree())
	if st.NumFree() > 0 {
		fmt.Printf("Free list:     %v\n", st.FreeSlots())
	}
}
