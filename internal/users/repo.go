package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidLogin  = errors.New("invalid email or password")
	ErrDuplicateCard = errors.New("card already registered for this user")
)

type Repo struct{ DB *pgxpool.Pool }

// Register stores a new credential with a bcrypt password hash. The raw
// password never touches the database.
func (r *Repo) Register(ctx context.Context, email, password string) (*Credential, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidLogin
	}

	var exists bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_credential WHERE email=$1)`, email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var c Credential
	c.Email = email
	c.Hash = string(hash)
	err = r.DB.QueryRow(ctx,
		`INSERT INTO user_credential(email, password_hash) VALUES ($1,$2) RETURNING id, created_at`,
		email, c.Hash).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	var c Credential
	err := r.DB.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM user_credential WHERE email=$1`,
		email).Scan(&c.ID, &c.Email, &c.Hash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(password)) != nil {
		return nil, ErrInvalidLogin
	}
	return &c, nil
}

func (r *Repo) InformationByUserID(ctx context.Context, userID int64) (*Information, error) {
	var info Information
	err := r.DB.QueryRow(ctx,
		`SELECT user_id, full_name, cedula, phone FROM user_information WHERE user_id=$1`,
		userID).Scan(&info.UserID, &info.FullName, &info.Cedula, &info.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *Repo) SaveInformation(ctx context.Context, info *Information) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO user_information(user_id, full_name, cedula, phone)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name=excluded.full_name, cedula=excluded.cedula, phone=excluded.phone`,
		info.UserID, info.FullName, info.Cedula, info.Phone)
	return err
}

func (r *Repo) AddressByUserID(ctx context.Context, userID int64) (*Address, error) {
	var a Address
	err := r.DB.QueryRow(ctx,
		`SELECT user_id, label, line1, city, state, postal_code, phone FROM user_address WHERE user_id=$1`,
		userID).Scan(&a.UserID, &a.Label, &a.Line1, &a.City, &a.State, &a.PostalCode, &a.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) SaveAddress(ctx context.Context, a *Address) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO user_address(user_id, label, line1, city, state, postal_code, phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id) DO UPDATE
		SET label=excluded.label, line1=excluded.line1, city=excluded.city,
		    state=excluded.state, postal_code=excluded.postal_code, phone=excluded.phone`,
		a.UserID, a.Label, a.Line1, a.City, a.State, a.PostalCode, a.Phone)
	return err
}

const paymentMethodColumns = `id, user_id, card_number, brand, exp_month, exp_year, name_on_card`

// PaymentMethodsByUserID returns the user's cards with raw fields. Callers
// presenting them must mask first.
func (r *Repo) PaymentMethodsByUserID(ctx context.Context, userID int64) ([]PaymentMethod, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+paymentMethodColumns+` FROM billing_method WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.UserID, &m.CardNumber, &m.Brand, &m.ExpMonth, &m.ExpYear, &m.NameOnCard); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) PaymentMethodByID(ctx context.Context, id int64) (*PaymentMethod, error) {
	var m PaymentMethod
	err := r.DB.QueryRow(ctx,
		`SELECT `+paymentMethodColumns+` FROM billing_method WHERE id=$1`, id).
		Scan(&m.ID, &m.UserID, &m.CardNumber, &m.Brand, &m.ExpMonth, &m.ExpYear, &m.NameOnCard)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) AddPaymentMethod(ctx context.Context, m *PaymentMethod) error {
	var dup bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM billing_method WHERE user_id=$1 AND card_number=$2)`,
		m.UserID, m.CardNumber).Scan(&dup); err != nil {
		return err
	}
	if dup {
		return ErrDuplicateCard
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO billing_method(user_id, card_number, brand, exp_month, exp_year, name_on_card)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		m.UserID, m.CardNumber, m.Brand, m.ExpMonth, m.ExpYear, m.NameOnCard).Scan(&m.ID)
}

func (r *Repo) DeletePaymentMethod(ctx context.Context, id, userID int64) error {
	_, err := r.DB.Exec(ctx,
		`DELETE FROM billing_method WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}

// Delete removes a user and everything owned by them. Dependent rows go
// first, inside one transaction, since the schema carries no ON DELETE
// CASCADE.
func (r *Repo) Delete(ctx context.Context, userID int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, q := range []string{
		`DELETE FROM billing_method WHERE user_id=$1`,
		`DELETE FROM user_address WHERE user_id=$1`,
		`DELETE FROM user_information WHERE user_id=$1`,
		`DELETE FROM user_credential WHERE id=$1`,
	} {
		if _, err := tx.Exec(ctx, q, userID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
