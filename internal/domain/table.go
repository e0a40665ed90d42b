package domain

type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
)

// Table representa uma mesa do restaurante. O motor apenas observa mesas.
type Table struct {
	ID     string      `json:"id"`
	Number int         `json:"number"`
	Status TableStatus `json:"status"`
}
