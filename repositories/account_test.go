package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"courier/domain"
	"courier/errors"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newAccountRepository(t *testing.T) *AccountRepository {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	return NewAccountRepository(db, index, slog.Default())
}

func testAccount(name, email string) domain.Account {
	return domain.Account{
		ID:                uuid.New(),
		Name:              name,
		Email:             email,
		PasswordHash:      "$argon2id$fake",
		VerificationToken: "token-" + uuid.NewString(),
		Active:            true,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestAccountCreateAndLookup(t *testing.T) {
	req := require.New(t)
	repo := newAccountRepository(t)

	account := testAccount("Alice", "Alice@Example.com")
	req.NoError(repo.Create(account))

	byID, err := repo.GetByID(account.ID)
	req.NoError(err)
	req.Equal(account.Email, byID.Email)

	// Email lookup is case-insensitive.
	byEmail, err := repo.GetByEmail("alice@example.COM")
	req.NoError(err)
	req.Equal(account.ID, byEmail.ID)

	byToken, err := repo.GetByVerificationToken(account.VerificationToken)
	req.NoError(err)
	req.Equal(account.ID, byToken.ID)

	_, err = repo.GetByID(uuid.New())
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestAccountEmailUniqueness(t *testing.T) {
	req := require.New(t)
	repo := newAccountRepository(t)

	req.NoError(repo.Create(testAccount("Alice", "alice@example.com")))

	err := repo.Create(testAccount("Imposter", "ALICE@example.com"))
	req.ErrorIs(err, errors.ErrConflict)
}

func TestVerificationTokenIsConsumedByUpdate(t *testing.T) {
	req := require.New(t)
	repo := newAccountRepository(t)

	account := testAccount("Alice", "alice@example.com")
	req.NoError(repo.Create(account))

	token := account.VerificationToken
	account.Verified = true
	account.VerificationToken = ""
	req.NoError(repo.Update(account))

	_, err := repo.GetByVerificationToken(token)
	req.ErrorIs(err, errors.ErrNotFound)

	stored, err := repo.GetByID(account.ID)
	req.NoError(err)
	req.True(stored.Verified)
	req.Empty(stored.VerificationToken)
}

func TestDeactivateFreesEmail(t *testing.T) {
	req := require.New(t)
	repo := newAccountRepository(t)

	account := testAccount("Alice", "alice@example.com")
	req.NoError(repo.Create(account))
	req.NoError(repo.Deactivate(account.ID))

	// Invisible by email, still resolvable by id for old references.
	_, err := repo.GetByEmail("alice@example.com")
	req.ErrorIs(err, errors.ErrNotFound)
	stored, err := repo.GetByID(account.ID)
	req.NoError(err)
	req.False(stored.Active)

	// The address can register again.
	req.NoError(repo.Create(testAccount("Alice II", "alice@example.com")))
}

func TestSearchDirectory(t *testing.T) {
	req := require.New(t)
	repo := newAccountRepository(t)
	ctx := context.Background()

	verified := func(name, email string) domain.Account {
		account := testAccount(name, email)
		account.Verified = true
		account.VerificationToken = ""
		return account
	}

	alice := verified("Alice Martin", "alice@example.com")
	bob := verified("Bob Martin", "bob@example.com")
	carol := testAccount("Carol Martin", "carol@example.com") // unverified
	req.NoError(repo.Create(alice))
	req.NoError(repo.Create(bob))
	req.NoError(repo.Create(carol))

	t.Run("substring match on name, case-insensitive", func(t *testing.T) {
		hits, err := repo.Search(ctx, "MARTIN", uuid.Nil, 10)
		req.NoError(err)
		ids := lo.Map(hits, func(a domain.Account, _ int) uuid.UUID { return a.ID })
		req.ElementsMatch([]uuid.UUID{alice.ID, bob.ID}, ids)
	})

	t.Run("substring match on email", func(t *testing.T) {
		hits, err := repo.Search(ctx, "bob@", uuid.Nil, 10)
		req.NoError(err)
		req.Len(hits, 1)
		req.Equal(bob.ID, hits[0].ID)
	})

	t.Run("unverified accounts are invisible", func(t *testing.T) {
		hits, err := repo.Search(ctx, "carol", uuid.Nil, 10)
		req.NoError(err)
		req.Empty(hits)
	})

	t.Run("caller is excluded", func(t *testing.T) {
		hits, err := repo.Search(ctx, "martin", alice.ID, 10)
		req.NoError(err)
		req.Len(hits, 1)
		req.Equal(bob.ID, hits[0].ID)
	})

	t.Run("result size is bounded", func(t *testing.T) {
		hits, err := repo.Search(ctx, "martin", uuid.Nil, 1)
		req.NoError(err)
		req.Len(hits, 1)
	})

	t.Run("blank query returns nothing", func(t *testing.T) {
		hits, err := repo.Search(ctx, "   ", uuid.Nil, 10)
		req.NoError(err)
		req.Empty(hits)
	})

	t.Run("deactivation removes the directory entry", func(t *testing.T) {
		req.NoError(repo.Deactivate(bob.ID))
		hits, err := repo.Search(ctx, "bob@", uuid.Nil, 10)
		req.NoError(err)
		req.Empty(hits)
	})
}
