package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"courier/domain"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// A read-only dump of the store, one table per record family. Index keys
// (email, pair, member, pointer) are listed raw since their value is the
// interesting part.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "", "Only dump keys with this prefix")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Detail", "Created"})
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

	header := fmt.Sprintf(" Inspecting %s ", *dbPath)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				recordType, detail, created := describe(key, v)
				table.Append([]string{key, recordType, detail, created})
				return nil
			})
			if err != nil {
				fmt.Printf("Error reading key %s: %v\n", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
}

func describe(key string, v []byte) (recordType, detail, created string) {
	switch {
	case strings.HasPrefix(key, "account:id:"):
		var account domain.Account
		if err := json.Unmarshal(v, &account); err != nil {
			return "ACCOUNT", "unreadable: " + err.Error(), ""
		}
		status := "unverified"
		if account.Verified {
			status = "verified"
		}
		if !account.Active {
			status = "deactivated"
		}
		return "ACCOUNT",
			fmt.Sprintf("%s <%s> (%s)", account.Name, account.Email, status),
			account.CreatedAt.Format(time.RFC822)

	case strings.HasPrefix(key, "conv:id:"):
		var conv domain.Conversation
		if err := json.Unmarshal(v, &conv); err != nil {
			return "CONVERSATION", "unreadable: " + err.Error(), ""
		}
		detail := fmt.Sprintf("%d participants", len(conv.Participants))
		if conv.LastMessage != "" {
			detail += fmt.Sprintf(", last: %q", truncate(conv.LastMessage, 40))
		}
		return "CONVERSATION", detail, conv.CreatedAt.Format(time.RFC822)

	case strings.HasPrefix(key, "msg:conv:"):
		var msg domain.Message
		if err := json.Unmarshal(v, &msg); err != nil {
			return "MESSAGE", "unreadable: " + err.Error(), ""
		}
		state := "unread"
		if msg.IsRead {
			state = "read"
		}
		return "MESSAGE",
			fmt.Sprintf("%s (%s)", truncate(msg.Content, 60), state),
			msg.CreatedAt.Format(time.RFC822)

	default:
		return "INDEX", string(v), ""
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// openDB opens the store read-only; BypassLockGuard allows inspecting
// while the server holds the lock.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(opts)
}
