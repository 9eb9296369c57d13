package address

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addressColumns = []string{
	"id", "party_id", "name", "street", "streetbis",
	"zip", "city", "country", "subdivision", "phone_contact_id", "phone",
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("WithPhone", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM addresses a LEFT JOIN contact_mechanisms c ON c.id = a.phone_contact_id WHERE a.id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(addressColumns).
				AddRow(1, 7, "Name", "Street", "", "ZIP", "City", "IN", "DL", 30, "1234567"))

		a, err := repo.GetByID(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, a.PhoneContactID)
		assert.Equal(t, int64(30), *a.PhoneContactID)
		assert.Equal(t, "1234567", a.Phone)
		assert.Equal(t, []string{"Name", "Street", "ZIP City", "DL IN"}, a.Lines())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM addresses").
			WithArgs(int64(2)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 2)
		assert.ErrorIs(t, err, ErrAddressNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByParty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM addresses .* WHERE a.party_id = \\$1 ORDER BY a.id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(addressColumns).
			AddRow(1, 7, "Home", "S", "", "Z", "C", "IN", "DL", nil, "").
			AddRow(2, 7, "Office", "S", "", "Z", "C", "IN", "DL", nil, ""))

	res, err := NewRepository(db).ListByParty(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Nil(t, res[0].PhoneContactID)
}

func TestRepository_CreateUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	phone := int64(30)
	a := &Address{
		PartyID: 7, Name: "Name", Street: "Street", Zip: "ZIP", City: "City",
		Country: "IN", Subdivision: "DL", PhoneContactID: &phone,
	}

	mock.ExpectQuery("INSERT INTO addresses").
		WithArgs(int64(7), "Name", "Street", "", "ZIP", "City", "IN", "DL", &phone).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, int64(5), a.ID)

	mock.ExpectExec("UPDATE addresses SET").
		WithArgs("Name", "Street", "", "ZIP", "City", "IN", "DL", &phone, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), a))

	mock.ExpectExec("UPDATE addresses SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), a), ErrAddressNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
