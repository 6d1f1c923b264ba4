package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"

	"guardian-chat/repositories"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Room", "Timestamp", "Message ID", "Author", "Text", "Risk"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var message repositories.ArchivedMessage
				if err := json.Unmarshal(v, &message); err != nil {
					// Au lieu de stopper tout le script, on log l'erreur et on continue
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				// On affiche les 8 premiers caractères du message ID pour la lisibilité
				displayID := strings.TrimPrefix(message.ID, "msg_")
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				text := message.Text
				if len(text) > 48 {
					text = text[:48] + "..."
				}

				table.Append([]string{
					string(item.Key()),
					message.Room,
					message.At.Format("15:04:05"),
					displayID,
					message.Author,
					text,
					fmt.Sprintf("%s:%d", message.RiskLevel, message.RiskScore),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	options := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR)
	return badger.Open(options)
}
