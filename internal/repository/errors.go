package repository

import "errors"

// Errores de dominio del ledger. Los de validación (monto inválido,
// fondos insuficientes) nunca se reintentan: reflejan una petición mala,
// no una condición transitoria.
var (
	// ErrInvalidAmount indica un monto o precio no positivo
	ErrInvalidAmount = errors.New("el monto y el precio deben ser mayores que cero")
	// ErrInsufficientHoldings indica una venta mayor que la posición del usuario
	ErrInsufficientHoldings = errors.New("fondos insuficientes para esta venta")
	// ErrNotAuthenticated indica que no hay identidad de usuario verificada
	ErrNotAuthenticated = errors.New("usuario no autenticado")
	// ErrConcurrentModification indica que otro proceso escribió el portafolio
	// entre nuestra lectura y nuestra escritura, agotados los reintentos
	ErrConcurrentModification = errors.New("el portafolio fue modificado concurrentemente")
)
