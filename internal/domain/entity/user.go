package entity

import "time"

// User representa un usuario de la aplicación (operador del POS).
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string // "admin" | "vendedor"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
