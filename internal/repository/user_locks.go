package repository

import "sync"

// userLocks serializa las operaciones de escritura por usuario. El almacén
// no ofrece lectura-modificación-escritura atómica, así que dos trades
// concurrentes del mismo usuario leerían el mismo estado viejo y el segundo
// pisaría al primero. Con un mutex por usuario, los trades de usuarios
// distintos avanzan en paralelo y los del mismo usuario se aplican de a uno,
// cada uno sobre el último estado confirmado.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// lockFor devuelve el mutex del usuario, creándolo la primera vez.
// Los mutex nunca se liberan del mapa: la cantidad de usuarios activos
// por proceso es acotada y un mutex vacío pesa unos pocos bytes.
func (u *userLocks) lockFor(userID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()

	lock, exists := u.locks[userID]
	if !exists {
		lock = &sync.Mutex{}
		u.locks[userID] = lock
	}
	return lock
}
