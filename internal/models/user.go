package models

type User struct {
	ID       int64  `json:"id" redis:"id"`
	Email    string `json:"email" redis:"email"`
	Username string `json:"username" redis:"username"`
	Phone    string `json:"phone" redis:"phone"`

	// PasswordHash is a bcrypt hash; handlers never echo the stored record.
	PasswordHash string `json:"password_hash,omitempty" redis:"password_hash"`

	SelectedCurrency string `json:"selected_currency" redis:"selected_currency"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}
