package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sfdict/sf-data-dictionary/dictionary"
)

var CompareCmd = Compare{
	command: command{},
}

type Compare struct {
	command
}

type comparison struct {
	object  string
	created bool
	updated int
	added   []string
	removed []string
	err     error
}

func (cmd *Compare) Name() string {
	return "compare"
}

func (cmd *Compare) Description() string {
	return "Lists the fields that would be added to or marked as removed from the data dictionary worksheets"
}

func (cmd *Compare) Usage() string {
	return "[--url <url>] [--objects <objects>]"
}

func (cmd *Compare) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] compare [options]\n", APP)
	fmt.Println()
	fmt.Println("  Compares the Salesforce object metadata with the data dictionary worksheets without")
	fmt.Println("  updating the worksheets")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf(`    %v compare --objects "Shift__c"`+"\n", APP)
	fmt.Println()
}

func (cmd *Compare) FlagSet() *flag.FlagSet {
	return cmd.flagset("compare")
}

func (cmd *Compare) Execute(args ...any) error {
	options := args[0].(*Options)
	ctx := context.Background()

	s, err := cmd.connect(ctx, options)
	if err != nil {
		return err
	}

	list := []comparison{}
	for _, object := range s.objects {
		list = append(list, compare(ctx, s.crm, s.store, object))
	}

	report(os.Stdout, list)

	for _, c := range list {
		if c.err != nil {
			return fmt.Errorf("compare failed for one or more objects")
		}
	}

	return nil
}

func compare(ctx context.Context, fetcher dictionary.Fetcher, store dictionary.Store, object string) comparison {
	u := dictionary.Updater{
		Fetcher: fetcher,
		Store:   store,
		DryRun:  true,
		Log:     logger,
	}

	c := comparison{
		object:  object,
		added:   []string{},
		removed: []string{},
	}

	outcome, result, err := u.Compare(ctx, object)
	if err != nil {
		c.err = err
		return c
	}

	c.created = outcome.Created
	c.updated = outcome.Updated
	c.added = result.Identities(dictionary.Added)
	c.removed = result.Identities(dictionary.Removed)

	return c
}

func report(w io.Writer, list []comparison) {
	for _, c := range list {
		fmt.Fprintf(w, "%v\n", c.object)

		if c.err != nil {
			fmt.Fprintf(w, "  ERROR    %v\n\n", c.err)
			continue
		}

		if c.created {
			fmt.Fprintf(w, "  new worksheet\n")
		}

		fmt.Fprintf(w, "  updated  %v\n", c.updated)
		fmt.Fprintf(w, "  added    %v\n", strings.Join(c.added, ", "))
		fmt.Fprintf(w, "  removed  %v\n", strings.Join(c.removed, ", "))
		fmt.Fprintln(w)
	}
}
