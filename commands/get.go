package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

var GetCmd = Get{
	command: command{},
	object:  "",
	file:    "",
}

type Get struct {
	command
	object string
	file   string
}

func (cmd *Get) Name() string {
	return "get"
}

func (cmd *Get) Description() string {
	return "Retrieves a data dictionary worksheet and stores it to a local TSV file"
}

func (cmd *Get) Usage() string {
	return "--object <object> [--file <file>]"
}

func (cmd *Get) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] get [options] --object <object> --file <file>\n", APP)
	fmt.Println()
	fmt.Println("  Downloads the data dictionary worksheet for a Salesforce object to a TSV file")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf(`    %v --debug get --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \`+"\n", APP)
	fmt.Println(`                           --object "Shift__c" \`)
	fmt.Println(`                           --file "shift.tsv"`)
	fmt.Println()
}

func (cmd *Get) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("get")

	flagset.StringVar(&cmd.object, "object", cmd.object, "Salesforce object e.g. 'Shift__c'")
	flagset.StringVar(&cmd.file, "file", cmd.file, "TSV file name. Defaults to '<object> - <yyyy-mm-ddTHHmmss>.tsv'")

	return flagset
}

func (cmd *Get) Execute(args ...any) error {
	options := args[0].(*Options)

	// ... check parameters
	if strings.TrimSpace(cmd.object) == "" {
		return fmt.Errorf("--object is a required option")
	}

	object := strings.TrimSpace(cmd.object)
	file := cmd.file
	if strings.TrimSpace(file) == "" {
		file = fmt.Sprintf("%v - %v", object, time.Now().Format("2006-01-02T150405.tsv"))
	}

	// ... fetch worksheet
	if cmd.objects == "" {
		cmd.objects = object
	}

	ctx := context.Background()
	s, err := cmd.connect(ctx, options)
	if err != nil {
		return err
	}

	debugf("spreadsheet:%s  object:%s", s.spreadsheet, object)

	rows, exists, err := s.store.ReadRows(ctx, object)
	if err != nil {
		return fmt.Errorf("unable to retrieve data from worksheet (%w)", err)
	} else if !exists {
		return fmt.Errorf("no worksheet for %v", object)
	} else if len(rows) == 0 {
		return fmt.Errorf("no data in worksheet for %v", object)
	}

	if err := export(rows, file); err != nil {
		return err
	}

	infof("Retrieved %v to file %s", object, file)

	return nil
}

func export(rows []dictionary.Row, file string) error {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tsv-*")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := dictionary.MakeTSV(tmp, rows); err != nil {
		return fmt.Errorf("error creating TSV file (%w)", err)
	}

	tmp.Close()

	return os.Rename(tmp.Name(), file)
}
