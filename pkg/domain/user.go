package domain

import "strings"

// User пользователь магазина
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// UsernameFromEmail имя по умолчанию для нового пользователя
func UsernameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
