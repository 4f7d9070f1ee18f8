package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/sfdict/sf-data-dictionary/gsheets"
)

var SyncCmd = Sync{
	command: command{},
	dryrun:  false,
}

type Sync struct {
	command
	dryrun bool
}

func (cmd *Sync) Name() string {
	return "sync"
}

func (cmd *Sync) Description() string {
	return "Updates the data dictionary worksheets from the Salesforce object metadata"
}

func (cmd *Sync) Usage() string {
	return "[--url <url>] [--objects <objects>] [--dry-run]"
}

func (cmd *Sync) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] sync [options]\n", APP)
	fmt.Println()
	fmt.Println("  Fetches the field list for each Salesforce object and updates the object's worksheet,")
	fmt.Println("  highlighting new fields and fields that no longer exist")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Printf(`    %v --debug sync --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \`+"\n", APP)
	fmt.Println(`                            --objects "Shift__c,Application__c"`)
	fmt.Println()
}

func (cmd *Sync) FlagSet() *flag.FlagSet {
	flagset := cmd.flagset("sync")

	flagset.BoolVar(&cmd.dryrun, "dry-run", cmd.dryrun, "Reconciles the worksheets without updating them")

	return flagset
}

func (cmd *Sync) Execute(args ...any) error {
	options := args[0].(*Options)
	ctx := context.Background()

	s, err := cmd.connect(ctx, options)
	if err != nil {
		return err
	}

	report := s.update(ctx, cmd.dryrun)

	for _, o := range report.Outcomes {
		if o.Err != nil {
			errorf("%-24v %v", o.Object, o.Err)
		} else {
			infof("%-24v fields:%v updated:%v added:%v removed:%v skipped:%v", o.Object, o.Fields, o.Updated, o.Added, o.Removed, o.Skipped)
		}
	}

	if !cmd.dryrun && s.conf.Revisions {
		if err := s.revision(ctx); err != nil {
			warnf("unable to record spreadsheet revision (%v)", err)
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%v of %v objects failed to update", len(failed), len(report.Outcomes))
	}

	infof("updated %v objects in %v", len(report.Outcomes), report.Finished.Sub(report.Started).Round(time.Millisecond))

	return nil
}

// revision records the latest revision of the spreadsheet to the working
// directory.
func (s *session) revision(ctx context.Context) error {
	gdrive, err := drive.NewService(ctx, option.WithHTTPClient(s.google))
	if err != nil {
		return fmt.Errorf("unable to create new Drive client (%w)", err)
	}

	latest, err := gsheets.LatestRevision(ctx, gdrive, s.spreadsheet)
	if err != nil {
		return err
	}

	file := filepath.Join(s.conf.Workdir, s.spreadsheet+".revision")
	if err := os.MkdirAll(filepath.Dir(file), 0770); err != nil {
		return err
	}

	debugf("spreadsheet revision %v (%v)", latest.ID, latest.Modified.Format(time.RFC3339))

	return os.WriteFile(file, []byte(revisionLine(latest)), 0660)
}

func revisionLine(r *gsheets.Revision) string {
	return fmt.Sprintf("%v\t%v\n", r.ID, r.Modified.Format(time.RFC3339))
}
