package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/lockbox-vault/lockbox/auth"
	"github.com/lockbox-vault/lockbox/internal/config"
	"github.com/lockbox-vault/lockbox/internal/vault"
	"github.com/lockbox-vault/lockbox/krypto"
)

const cliVersion = "0.1.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Println(cliVersion)
	case "init":
		err = runInit(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "get":
		err = runGet(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "delete":
		err = runDelete(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "generate":
		err = runGenerate(os.Args[2:])
	case "change-passphrase":
		err = runChangePassphrase(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	handleError(err)
}

func handleError(err error) {
	if err == nil {
		return
	}

	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		os.Exit(1)
	}

	switch {
	case errors.Is(err, vault.ErrNotFound):
		fmt.Fprintln(os.Stderr, "no vault found; run 'lockbox init' first")
		os.Exit(1)
	case errors.Is(err, vault.ErrWrongPassphrase):
		fmt.Fprintln(os.Stderr, "wrong passphrase")
		os.Exit(1)
	case errors.Is(err, vault.ErrVersionUnsupported):
		fmt.Fprintln(os.Stderr, "vault was written by a newer version of lockbox")
		os.Exit(1)
	case errors.Is(err, vault.ErrFormatCorrupt):
		fmt.Fprintln(os.Stderr, "vault file is corrupt and cannot be repaired")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	os.Exit(2)
}

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "vault file path")
	return fs, file
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return userError{msg: fmt.Sprintf("invalid %s arguments", fs.Name())}
	}
	if fs.NArg() != 0 {
		return userError{msg: "unexpected positional arguments"}
	}
	return nil
}

func runInit(args []string) error {
	fs, file := newFlagSet("init")
	checkBreach := fs.Bool("check-breach", false, "check the passphrase against the HIBP breach corpus")
	if err := parse(fs, args); err != nil {
		return err
	}

	path, err := config.ResolveVaultPath(*file)
	if err != nil {
		return err
	}

	pw, err := promptPassphrase("Enter master passphrase: ")
	if err != nil {
		return fmt.Errorf("read master passphrase: %w", err)
	}
	defer krypto.Zero(pw)

	confirm, err := promptPassphrase("Confirm master passphrase: ")
	if err != nil {
		return fmt.Errorf("read confirmation passphrase: %w", err)
	}
	defer krypto.Zero(confirm)

	if !bytes.Equal(pw, confirm) {
		return userError{msg: "passphrases do not match"}
	}

	if err := auth.ValidateMasterPassphrase(string(pw)); err != nil {
		return userError{msg: err.Error()}
	}

	if *checkBreach {
		if err := breachCheck(string(pw)); err != nil {
			return err
		}
	}

	s, err := vault.Create(path, pw)
	if err != nil {
		if errors.Is(err, vault.ErrVaultExists) {
			return userError{msg: fmt.Sprintf("a vault already exists at %s", path)}
		}
		return err
	}
	defer s.Close()

	fmt.Printf("vault created at %s\n", path)
	return nil
}

func runAdd(args []string) error {
	fs, file := newFlagSet("add")
	service := fs.String("service", "", "service name")
	username := fs.String("user", "", "username for the service")
	generate := fs.Bool("generate", false, "generate a random secret")
	length := fs.Int("length", 16, "generated secret length")
	symbols := fs.Bool("symbols", true, "include symbols in the generated secret")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *service == "" {
		return userError{msg: "add requires --service"}
	}

	secret, err := obtainSecret(*generate, *length, *symbols, "Secret: ")
	if err != nil {
		return err
	}

	s, err := openSession(*file)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Add(*service, *username, secret); err != nil {
		if errors.Is(err, vault.ErrDuplicateEntry) {
			return userError{msg: fmt.Sprintf("an entry for %s already exists; use 'lockbox update'", *service)}
		}
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}

	fmt.Printf("stored credential for %s\n", *service)
	return nil
}

func runGet(args []string) error {
	fs, file := newFlagSet("get")
	service := fs.String("service", "", "service name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *service == "" {
		return userError{msg: "get requires --service"}
	}

	s, err := openSession(*file)
	if err != nil {
		return err
	}
	defer s.Close()

	entry, err := s.Get(*service)
	if err != nil {
		if errors.Is(err, vault.ErrEntryNotFound) {
			return userError{msg: fmt.Sprintf("no entry found for service: %s", *service)}
		}
		return err
	}

	fmt.Printf("Service:  %s\n", entry.Service)
	if entry.Username != "" {
		fmt.Printf("Username: %s\n", entry.Username)
	}
	fmt.Printf("Secret:   %s\n", entry.Secret)
	fmt.Printf("Created:  %s\n", entry.CreatedAt.Format(time.DateTime))
	fmt.Printf("Updated:  %s\n", entry.UpdatedAt.Format(time.DateTime))
	return nil
}

func runList(args []string) error {
	fs, file := newFlagSet("list")
	if err := parse(fs, args); err != nil {
		return err
	}

	s, err := openSession(*file)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no credentials stored yet")
		return nil
	}

	for _, e := range entries {
		if e.Username != "" {
			fmt.Printf("%s (%s)\n", e.Service, e.Username)
		} else {
			fmt.Println(e.Service)
		}
	}
	return nil
}

func runDelete(args []string) error {
	fs, file := newFlagSet("delete")
	service := fs.String("service", "", "service name")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *service == "" {
		return userError{msg: "delete requires --service"}
	}

	s, err := openSession(*file)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Get(*service); err != nil {
		if errors.Is(err, vault.ErrEntryNotFound) {
			return userError{msg: fmt.Sprintf("no entry found for service: %s", *service)}
		}
		return err
	}

	if !*yes {
		ok, err := confirmLine(fmt.Sprintf("Delete the entry for %q? (y/N): ", *service))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("deletion cancelled")
			return nil
		}
	}

	if _, err := s.Delete(*service); err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}

	fmt.Printf("deleted entry for %s\n", *service)
	return nil
}

func runUpdate(args []string) error {
	fs, file := newFlagSet("update")
	service := fs.String("service", "", "service name")
	generate := fs.Bool("generate", false, "generate a random secret")
	length := fs.Int("length", 16, "generated secret length")
	symbols := fs.Bool("symbols", true, "include symbols in the generated secret")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *service == "" {
		return userError{msg: "update requires --service"}
	}

	secret, err := obtainSecret(*generate, *length, *symbols, "New secret: ")
	if err != nil {
		return err
	}

	s, err := openSession(*file)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.UpdateSecret(*service, secret); err != nil {
		if errors.Is(err, vault.ErrEntryNotFound) {
			return userError{msg: fmt.Sprintf("no entry found for service: %s", *service)}
		}
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}

	fmt.Printf("updated secret for %s\n", *service)
	return nil
}

func runGenerate(args []string) error {
	fs := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	length := fs.Int("length", 16, "password length")
	symbols := fs.Bool("symbols", true, "include symbols")
	if err := parse(fs, args); err != nil {
		return err
	}

	pw, err := krypto.GeneratePassword(*length, *symbols)
	if err != nil {
		return userError{msg: err.Error()}
	}
	fmt.Println(pw)
	return nil
}

func runChangePassphrase(args []string) error {
	fs, file := newFlagSet("change-passphrase")
	checkBreach := fs.Bool("check-breach", false, "check the new passphrase against the HIBP breach corpus")
	if err := parse(fs, args); err != nil {
		return err
	}

	path, err := config.ResolveVaultPath(*file)
	if err != nil {
		return err
	}

	oldPw, err := promptPassphrase("Current master passphrase: ")
	if err != nil {
		return fmt.Errorf("read master passphrase: %w", err)
	}
	defer krypto.Zero(oldPw)

	// Open consumes its own copy so the old passphrase stays available for
	// the re-key verification below.
	s, err := vault.Open(path, bytes.Clone(oldPw))
	if err != nil {
		return err
	}
	defer s.Close()

	newPw, err := promptPassphrase("New master passphrase: ")
	if err != nil {
		return fmt.Errorf("read new passphrase: %w", err)
	}
	defer krypto.Zero(newPw)

	confirm, err := promptPassphrase("Confirm new passphrase: ")
	if err != nil {
		return fmt.Errorf("read confirmation passphrase: %w", err)
	}
	defer krypto.Zero(confirm)

	if !bytes.Equal(newPw, confirm) {
		return userError{msg: "passphrases do not match"}
	}

	if err := auth.ValidateMasterPassphrase(string(newPw)); err != nil {
		return userError{msg: err.Error()}
	}

	if *checkBreach {
		if err := breachCheck(string(newPw)); err != nil {
			return err
		}
	}

	if err := s.ChangePassphrase(oldPw, newPw); err != nil {
		return err
	}

	fmt.Println("master passphrase changed")
	return nil
}

// openSession resolves the vault path, prompts for the passphrase, and
// unlocks the vault.
func openSession(flagPath string) (*vault.Session, error) {
	path, err := config.ResolveVaultPath(flagPath)
	if err != nil {
		return nil, err
	}

	pw, err := promptPassphrase("Master passphrase: ")
	if err != nil {
		return nil, fmt.Errorf("read master passphrase: %w", err)
	}

	return vault.Open(path, pw)
}

// obtainSecret returns either a generated secret or one read from the
// terminal with confirmation.
func obtainSecret(generate bool, length int, symbols bool, prompt string) (string, error) {
	if generate {
		secret, err := krypto.GeneratePassword(length, symbols)
		if err != nil {
			return "", userError{msg: err.Error()}
		}
		return secret, nil
	}

	secret, err := promptPassphrase(prompt)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	defer krypto.Zero(secret)

	confirm, err := promptPassphrase("Confirm: ")
	if err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	defer krypto.Zero(confirm)

	if !bytes.Equal(secret, confirm) {
		return "", userError{msg: "secrets do not match"}
	}
	return string(secret), nil
}

func breachCheck(pw string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := auth.CheckHIBP(ctx, pw)
	if err != nil {
		// Fail open: the breach check is advisory and must not block vault
		// creation when offline.
		fmt.Fprintf(os.Stderr, "warning: breach check unavailable: %v\n", err)
		return nil
	}
	if result.Found {
		return userError{msg: fmt.Sprintf("passphrase appears in %d known breaches; choose another", result.Count)}
	}
	return nil
}

func promptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func confirmLine(prompt string) (bool, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: lockbox <command>")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  init               create a new vault")
	fmt.Fprintln(os.Stderr, "  add                store a credential (--service, --user, [--generate])")
	fmt.Fprintln(os.Stderr, "  get                show a credential (--service)")
	fmt.Fprintln(os.Stderr, "  list               list stored services")
	fmt.Fprintln(os.Stderr, "  update             replace a credential's secret (--service)")
	fmt.Fprintln(os.Stderr, "  delete             remove a credential (--service, [--yes])")
	fmt.Fprintln(os.Stderr, "  generate           generate a random password")
	fmt.Fprintln(os.Stderr, "  change-passphrase  re-key the vault under a new passphrase")
	fmt.Fprintln(os.Stderr, "  version")
	fmt.Fprintln(os.Stderr, "All vault commands accept --file to override the vault path.")
}
