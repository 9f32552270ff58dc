package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Dumps the user records of a badger store as a table. Debug tool, not part
// of the running service.
func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	prefix := flag.String("prefix", "user:", "Prefix to scan")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Email", "Name", "Role", "Created"})
	table.SetAutoWrapText(false)
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
				var record struct {
					ID        string    `json:"id"`
					Email     string    `json:"email"`
					Name      string    `json:"name"`
					Role      string    `json:"role"`
					CreatedAt time.Time `json:"created_at"`
				}
				if err := json.Unmarshal(v, &record); err != nil {
					log.Printf("Error unmarshaling key %s: %v", string(item.Key()), err)
					return nil
				}

				displayID := record.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}
				table.Append([]string{
					displayID,
					record.Email,
					record.Name,
					record.Role,
					record.CreatedAt.Format("2006-01-02 15:04"),
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
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
}
