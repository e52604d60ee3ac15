package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	logging "github.com/op/go-logging"

	"github.com/viert/slotstore/common"
)

var (
	log = logging.MustGetLogger("ssctl")
)

func main() {
	parser := argparse.NewParser("ssctl", "a tool for manipulating slotstore files")

	createCmd := parser.NewCommand("create", "creates a new slotstore file")
	createFile := createCmd.File("f", "file", createFlags, 0644,
		&argparse.Options{Required: true, Help: "filename to create (must not exist)"})
	slotCapacity := createCmd.Int("s", "size",
		&argparse.Options{Required: true, Help: "payload capacity of a single slot (not including slot header)"})

	infoCmd := parser.NewCommand("info", "shows slotstore file summary")
	infoFile := infoCmd.String("f", "file",
		&argparse.Options{Required: true, Help: "storage filename"})

	putCmd := parser.NewCommand("put", "writes a record spanning as many slots as needed")
	putFile := putCmd.String("f", "file",
		&argparse.Options{Required: true, Help: "storage filename"})
	putData := putCmd.String("d", "data",
		&argparse.Options{Required: true, Help: "record data"})

	getCmd := parser.NewCommand("get", "prints concatenated payloads of given slots")
	getFile := getCmd.String("f", "file",
		&argparse.Options{Required: true, Help: "storage filename"})
	getSlots := getCmd.String("i", "ids",
		&argparse.Options{Required: true, Help: "comma-separated slot ids"})

	deleteCmd := parser.NewCommand("delete", "frees given slots")
	deleteFile := deleteCmd.String("f", "file",
		&argparse.Options{Required: true, Help: "storage filename"})
	deleteSlots := deleteCmd.String("i", "ids",
		&argparse.Options{Required: true, Help: "comma-separated slot ids"})
	hardDelete := deleteCmd.Flag("H", "hard",
		&argparse.Options{Help: "zero out slot payloads as well"})

	copyCmd := parser.NewCommand("copy", "copies all occupied slots into another storage")
	copyInput := copyCmd.String("i", "input",
		&argparse.Options{Required: true, Help: "source storage filename"})
	copyOutput := copyCmd.String("o", "output",
		&argparse.Options{Required: true, Help: "destination storage filename"})

	verbose := parser.Flag("v", "verbose",
		&argparse.Options{Help: "log storage activity to stderr"})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	level := logging.WARNING
	if *verbose {
		level = logging.DEBUG
	}
	_, err = common.ConfigureLogging("", level)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	switch {
	case createCmd.Happened():
		runCreate(createFile, *slotCapacity)
	case infoCmd.Happened():
		runInfo(*infoFile)
	case putCmd.Happened():
		runPut(*putFile, *putData)
	case getCmd.Happened():
		runGet(*getFile, *getSlots)
	case deleteCmd.Happened():
		runDelete(*deleteFile, *deleteSlots, *hardDelete)
	case copyCmd.Happened():
		runCopy(*copyInput, *copyOutput)
	}
}
