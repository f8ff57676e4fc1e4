package models

import (
	"time"
)

// User es el registro de cuenta guardado bajo user:{id}. El hash de la
// contraseña viaja en el JSON persistido; los handlers nunca serializan
// este struct directo hacia el cliente, arman la respuesta a mano.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"` // Hash bcrypt, vacío para usuarios de Clerk
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
