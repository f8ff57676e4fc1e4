package store

import (
	"context"
	"errors"
	"time"
)

// Errores del almacén clave-valor
var (
	// ErrKeyNotFound indica que la clave no existe en el almacén
	ErrKeyNotFound = errors.New("clave no encontrada")
	// ErrStoreUnavailable indica un fallo transitorio del almacén (timeout, conexión caída).
	// El llamador puede reintentar la operación.
	ErrStoreUnavailable = errors.New("almacén no disponible")
)

// Timeout por defecto para cada operación contra el almacén
const defaultTimeout = 5 * time.Second

// KVStore es la abstracción sobre el almacén remoto. El almacén solo ofrece
// lectura y escritura independientes, sin transacciones: la serialización de
// lecturas-modificaciones-escrituras es responsabilidad del repositorio.
type KVStore interface {
	// Get devuelve el valor JSON almacenado bajo key, o ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Put guarda el valor JSON bajo key, sobreescribiendo el valor anterior
	Put(ctx context.Context, key string, value []byte) error
	// ScanPrefix devuelve todos los valores cuyas claves empiezan con prefix.
	// No hay garantía de orden.
	ScanPrefix(ctx context.Context, prefix string) ([][]byte, error)
	// Close libera la conexión con el almacén
	Close() error
}

// withTimeout limita cada llamada al almacén para que ninguna operación
// bloquee indefinidamente
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultTimeout)
}
