// Command seed creates user records in the BadgerDB store and mints a token
// for each, so that clients have credentials to join rooms with.
//
//	go run ./cmd/seed -db /tmp/studymate -secret dev-secret Alice Bob
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"studymate/auth"
	"studymate/repositories"
)

func main() {
	dbPath := flag.String("db", "", "Path to the badger DB (same as the server's BADGER_FILEPATH)")
	secret := flag.String("secret", "", "JWT secret (same as the server's JWT_SECRET)")
	validity := flag.Duration("validity", 168*time.Hour, "Token validity")
	flag.Parse()

	names := flag.Args()
	if *dbPath == "" || *secret == "" || len(names) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: seed -db <path> -secret <secret> [-validity 168h] NAME...")
		os.Exit(1)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	users := repositories.NewUserRepository(db)
	verifier := auth.NewVerifier(*secret)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "User ID", "Token"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")

	for _, name := range names {
		id, err := users.CreateUser(name)
		if err != nil {
			log.Fatalf("Creating %q failed: %v", name, err)
		}
		token, err := verifier.Mint(id, *validity)
		if err != nil {
			log.Fatalf("Minting token for %q failed: %v", name, err)
		}
		table.Append([]string{name, id, token})
	}
	table.Render()
}
