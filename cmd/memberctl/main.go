// Command memberctl runs roster maintenance against the member database.
//
//	memberctl import -file members.csv [-delimiter ';'] [-dry-run]
//	memberctl export [-out members.csv] [-delimiter ';']
//	memberctl update-emails -file emails.csv [-dry-run]
//	memberctl delete-listed -file leavers.csv [-dry-run]
//	memberctl hash-password -password secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"gymaccess/internal/auth"
	"gymaccess/internal/config"
	"gymaccess/internal/member"
	"gymaccess/internal/roster"
	"gymaccess/internal/store"
)

const usage = `usage: memberctl <command> [flags]

commands:
  import         create or update members from a roster CSV
  export         write all members as CSV
  update-emails  replace placeholder emails from a CSV of first_name,last_name,email
  delete-listed  delete the members named in a CSV of first_name,last_name
  hash-password  print a bcrypt hash for ADMIN_PASSWORD_HASH
`

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("memberctl %s: %v", os.Args[1], err)
	}
}

type flags struct {
	fs        *flag.FlagSet
	file      string
	out       string
	delimiter string
	dryRun    bool
	password  string
}

func parseFlags(cmd string, args []string) (*flags, error) {
	f := &flags{fs: flag.NewFlagSet(cmd, flag.ContinueOnError)}
	f.fs.StringVar(&f.file, "file", "", "input CSV path")
	f.fs.StringVar(&f.out, "out", "", "output path (default stdout)")
	f.fs.StringVar(&f.delimiter, "delimiter", ",", "CSV field delimiter")
	f.fs.BoolVar(&f.dryRun, "dry-run", false, "report what would change without writing")
	f.fs.StringVar(&f.password, "password", "", "password to hash")
	if err := f.fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *flags) delim() (rune, error) {
	if f.delimiter == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(f.delimiter)
	if size == 0 || size != len(f.delimiter) {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", f.delimiter)
	}
	return r, nil
}

func run(ctx context.Context, cmd string, args []string) error {
	f, err := parseFlags(cmd, args)
	if err != nil {
		return err
	}
	if cmd == "hash-password" {
		if f.password == "" {
			return errors.New("-password is required")
		}
		hash, err := auth.HashPassword(f.password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	}

	delim, err := f.delim()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	reg := member.NewRegistry(member.NewPostgresRepository(db.Client))
	opts := roster.Options{Delimiter: delim, DryRun: f.dryRun}

	switch cmd {
	case "export":
		return export(ctx, reg, f.out, delim)
	case "import":
		return withFile(f.file, func(r io.Reader) error {
			rep, err := roster.Import(ctx, reg, r, roster.ImportOptions{Options: opts, Today: time.Now().In(loc)})
			printReport(rep)
			return err
		})
	case "update-emails":
		return withFile(f.file, func(r io.Reader) error {
			rep, err := roster.UpdatePlaceholderEmails(ctx, reg, r, opts)
			printReport(rep)
			return err
		})
	case "delete-listed":
		return withFile(f.file, func(r io.Reader) error {
			rep, err := roster.DeleteListed(ctx, reg, r, opts)
			printReport(rep)
			return err
		})
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withFile(path string, fn func(io.Reader) error) error {
	if path == "" {
		return errors.New("-file is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return fn(file)
}

func export(ctx context.Context, reg *member.Registry, path string, delim rune) error {
	var w io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	n, err := roster.Export(ctx, reg, w, delim)
	if err != nil {
		return err
	}
	log.Printf("exported %d members", n)
	return nil
}

func printReport(rep *roster.Report) {
	if rep == nil {
		return
	}
	for _, row := range rep.Rows {
		if row.Message != "" {
			log.Printf("line %d %s: %s (%s)", row.Line, row.Name, row.Action, row.Message)
		} else {
			log.Printf("line %d %s: %s", row.Line, row.Name, row.Action)
		}
	}
	prefix := ""
	if rep.DryRun {
		prefix = "dry run: "
	}
	log.Printf("%screated=%d updated=%d deleted=%d not_found=%d skipped=%d",
		prefix, rep.Created, rep.Updated, rep.Deleted, rep.NotFound, rep.Skipped)
}
