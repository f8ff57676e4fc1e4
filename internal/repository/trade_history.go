package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/store"
	"github.com/google/uuid"
)

// TradeHistory es el registro append-only de trades ejecutados.
// Cada trade se guarda bajo trade:{userId}:{timestamp}-{seq}, de modo
// que la clave lógica ordena por tiempo dentro de cada usuario.
type TradeHistory struct {
	store store.KVStore

	// Última pareja (timestamp, seq) emitida por usuario, para que la
	// clave de ordenamiento sea estrictamente creciente aunque dos trades
	// caigan en el mismo nanosegundo
	mu   sync.Mutex
	last map[string]tradeStamp
}

type tradeStamp struct {
	nanos int64
	seq   uint64
}

// registro persistido: el trade más una marca de anulación que se usa
// cuando la escritura del portafolio falló después de anotar el trade
type tradeEntry struct {
	models.TradeRecord
	Voided bool `json:"voided,omitempty"`
}

func NewTradeHistory(kv store.KVStore) *TradeHistory {
	return &TradeHistory{
		store: kv,
		last:  make(map[string]tradeStamp),
	}
}

// nextStamp devuelve un (timestamp, seq) estrictamente mayor que el
// anterior del mismo usuario
func (h *TradeHistory) nextStamp(userID string) tradeStamp {
	h.mu.Lock()
	defer h.mu.Unlock()

	stamp := tradeStamp{nanos: time.Now().UTC().UnixNano()}
	if prev, exists := h.last[userID]; exists {
		if stamp.nanos < prev.nanos {
			// El reloj retrocedió: conservamos el timestamp anterior
			stamp.nanos = prev.nanos
		}
		if stamp.nanos == prev.nanos {
			stamp.seq = prev.seq + 1
		}
	}
	h.last[userID] = stamp
	return stamp
}

func tradeKey(userID string, stamp tradeStamp) string {
	// Ancho fijo para que el orden lexicográfico coincida con el temporal
	return fmt.Sprintf("trade:%s:%020d-%09d", userID, stamp.nanos, stamp.seq)
}

func tradePrefix(userID string) string {
	return fmt.Sprintf("trade:%s:", userID)
}

// Append anota un trade ejecutado. Devuelve la clave bajo la que quedó
// guardado, para poder anularlo si la escritura del portafolio falla.
func (h *TradeHistory) Append(ctx context.Context, userID, coinID, side string, amount, price float64) (string, *models.TradeRecord, error) {
	stamp := h.nextStamp(userID)
	record := models.TradeRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		CoinID:    coinID,
		Side:      side,
		Amount:    amount,
		Price:     price,
		Timestamp: time.Unix(0, stamp.nanos).UTC(),
		Sequence:  stamp.seq,
	}

	data, err := json.Marshal(tradeEntry{TradeRecord: record})
	if err != nil {
		return "", nil, err
	}

	key := tradeKey(userID, stamp)
	if err := h.store.Put(ctx, key, data); err != nil {
		return "", nil, err
	}
	return key, &record, nil
}

// Void marca un trade como anulado sobreescribiendo su registro. Se usa
// cuando el portafolio no pudo guardarse después de anotar el trade: para
// los lectores es como si el trade nunca hubiera existido.
func (h *TradeHistory) Void(ctx context.Context, key string, record *models.TradeRecord) {
	data, err := json.Marshal(tradeEntry{TradeRecord: *record, Voided: true})
	if err != nil {
		log.Printf("Error al serializar la anulación del trade %s: %v", record.ID, err)
		return
	}
	if err := h.store.Put(ctx, key, data); err != nil {
		// Mejor esfuerzo: el registro quedará huérfano pero el portafolio
		// nunca reflejó este trade
		log.Printf("Error al anular el trade %s: %v", record.ID, err)
	}
}

// ListByUser devuelve los trades del usuario ordenados del más viejo al
// más nuevo. El dashboard los invierte para mostrarlos.
func (h *TradeHistory) ListByUser(ctx context.Context, userID string) ([]models.TradeRecord, error) {
	values, err := h.store.ScanPrefix(ctx, tradePrefix(userID))
	if err != nil {
		return nil, err
	}

	records := make([]models.TradeRecord, 0, len(values))
	for _, data := range values {
		var entry tradeEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			log.Printf("Registro de trade corrupto para usuario %s: %v", userID, err)
			continue
		}
		if entry.Voided {
			continue
		}
		records = append(records, entry.TradeRecord)
	}

	// ScanPrefix no garantiza orden (SCAN de Redis no lo tiene), así que
	// ordenamos por (timestamp, sequence) del lado del cliente
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].Sequence < records[j].Sequence
	})
	return records, nil
}
