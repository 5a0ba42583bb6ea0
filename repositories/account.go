//go:generate go run go.uber.org/mock/mockgen -source=account.go -destination=../mocks/mock_account_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"courier/domain"
	"courier/errors"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IAccountRepository interface {
	Create(account domain.Account) error
	GetByID(id uuid.UUID) (domain.Account, error)
	GetByEmail(email string) (domain.Account, error)
	GetByVerificationToken(token string) (domain.Account, error)
	Update(account domain.Account) error
	Deactivate(id uuid.UUID) error
	Search(ctx context.Context, query string, excluding uuid.UUID, limit int) ([]domain.Account, error)
}

// AccountRepository persists accounts in BadgerDB and mirrors verified,
// active accounts into a Bluge index for directory search.
//
// Key schema:
//
//	account:id:{uuid}        -> JSON record
//	account:email:{email}    -> account id, present only for active accounts
//	account:vtoken:{token}   -> account id, present only while unverified
//
// The email key doubles as the uniqueness constraint: it is checked and
// written inside the same transaction as the record, so two concurrent
// registrations for one email cannot both commit.
type AccountRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewAccountRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger) *AccountRepository {
	return &AccountRepository{db: db, index: index, log: log}
}

func accountKey(id uuid.UUID) []byte {
	return []byte("account:id:" + id.String())
}

func accountEmailKey(email string) []byte {
	return []byte("account:email:" + strings.ToLower(email))
}

func accountTokenKey(token string) []byte {
	return []byte("account:vtoken:" + token)
}

func (r *AccountRepository) Create(account domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "encoding account")
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		emailKey := accountEmailKey(account.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.Conflict("email %q is already registered", account.Email)
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey, []byte(account.ID.String())); err != nil {
			return err
		}
		if account.VerificationToken != "" {
			if err := txn.Set(accountTokenKey(account.VerificationToken), []byte(account.ID.String())); err != nil {
				return err
			}
		}
		return txn.Set(accountKey(account.ID), data)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrConflict) {
			return errors.Conflict("email %q is already registered", account.Email)
		}
		if errors.KindOf(err) == errors.KindConflict {
			return err
		}
		return errors.Wrap(errors.KindInternal, err, "storing account")
	}

	r.reindex(account)
	return nil
}

func (r *AccountRepository) GetByID(id uuid.UUID) (domain.Account, error) {
	var account domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, accountKey(id), &account)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Account{}, errors.NotFound("account not found")
		}
		return domain.Account{}, errors.Wrap(errors.KindInternal, err, "loading account")
	}
	return account, nil
}

// GetByEmail resolves via the email index, which only exists for active
// accounts; deactivated accounts are invisible here.
func (r *AccountRepository) GetByEmail(email string) (domain.Account, error) {
	return r.getIndirect(accountEmailKey(email))
}

func (r *AccountRepository) GetByVerificationToken(token string) (domain.Account, error) {
	return r.getIndirect(accountTokenKey(token))
}

func (r *AccountRepository) getIndirect(indexKey []byte) (domain.Account, error) {
	var account domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		if err != nil {
			return err
		}
		rawID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(string(rawID))
		if err != nil {
			return err
		}
		return readJSON(txn, accountKey(id), &account)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Account{}, errors.NotFound("account not found")
		}
		return domain.Account{}, errors.Wrap(errors.KindInternal, err, "loading account")
	}
	return account, nil
}

// Update rewrites the record and keeps the verification-token index in
// sync: a token cleared by the update is deleted in the same transaction,
// which is what makes verification tokens single-use.
func (r *AccountRepository) Update(account domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "encoding account")
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		var previous domain.Account
		if err := readJSON(txn, accountKey(account.ID), &previous); err != nil {
			return err
		}
		if previous.VerificationToken != "" && previous.VerificationToken != account.VerificationToken {
			if err := txn.Delete(accountTokenKey(previous.VerificationToken)); err != nil {
				return err
			}
		}
		return txn.Set(accountKey(account.ID), data)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound("account not found")
		}
		return errors.Wrap(errors.KindInternal, err, "updating account")
	}

	r.reindex(account)
	return nil
}

// Deactivate soft-deletes: the record stays (messages still resolve the
// sender's profile) but the email can be registered again.
func (r *AccountRepository) Deactivate(id uuid.UUID) error {
	var account domain.Account
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := readJSON(txn, accountKey(id), &account); err != nil {
			return err
		}
		if !account.Active {
			return nil
		}
		if err := txn.Delete(accountEmailKey(account.Email)); err != nil {
			return err
		}
		if account.VerificationToken != "" {
			if err := txn.Delete(accountTokenKey(account.VerificationToken)); err != nil {
				return err
			}
		}
		account.Active = false
		data, err := json.Marshal(account)
		if err != nil {
			return err
		}
		return txn.Set(accountKey(id), data)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFound("account not found")
		}
		return errors.Wrap(errors.KindInternal, err, "deactivating account")
	}

	r.reindex(account)
	return nil
}

// Search runs a case-insensitive substring match on name or email over the
// directory index. Only verified accounts are indexed; the caller is
// dropped from the result page.
func (r *AccountRepository) Search(ctx context.Context, query string, excluding uuid.UUID, limit int) ([]domain.Account, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || limit <= 0 {
		return nil, nil
	}

	reader, err := r.index.Reader()
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "opening directory reader")
	}
	defer reader.Close()

	substring := bluge.NewBooleanQuery().
		AddShould(bluge.NewWildcardQuery("*" + needle + "*").SetField("name")).
		AddShould(bluge.NewWildcardQuery("*" + needle + "*").SetField("email")).
		SetMinShould(1)
	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery("true").SetField("verified")).
		AddMust(substring)

	// One extra hit leaves room to drop the caller from the page.
	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit+1, q))
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "searching directory")
	}

	var ids []uuid.UUID
	for {
		match, err := it.Next()
		if err != nil {
			return nil, errors.Wrap(errors.KindInternal, err, "searching directory")
		}
		if match == nil || len(ids) == limit {
			break
		}
		var docID string
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				docID = string(value)
			}
			return true
		})
		if err != nil {
			return nil, errors.Wrap(errors.KindInternal, err, "reading directory hit")
		}
		id, err := uuid.Parse(docID)
		if err != nil || id == excluding {
			continue
		}
		ids = append(ids, id)
	}

	accounts := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		account, err := r.GetByID(id)
		if err != nil {
			r.log.Warn("indexed account missing from store", "account", id, "error", err)
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func directoryDoc(account domain.Account) *bluge.Document {
	return bluge.NewDocument(account.ID.String()).
		AddField(bluge.NewKeywordField("name", strings.ToLower(account.Name))).
		AddField(bluge.NewKeywordField("email", strings.ToLower(account.Email))).
		AddField(bluge.NewKeywordField("verified", "true"))
}

// reindex keeps the directory in step with the record. The index is a
// projection of the store; a failed write is logged, never surfaced.
func (r *AccountRepository) reindex(account domain.Account) {
	var err error
	if account.Active && account.Verified {
		doc := directoryDoc(account)
		err = r.index.Update(doc.ID(), doc)
	} else {
		err = r.index.Delete(bluge.Identifier(account.ID.String()))
	}
	if err != nil {
		r.log.Warn("directory index update failed", "account", account.ID, "error", err)
	}
}

func readJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, out)
	})
}
