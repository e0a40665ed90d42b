// Package domain contém as estruturas de dados do domínio da aplicação
package domain

// Collection identifica uma das coleções remotas observadas pelo motor
type Collection string

const (
	CollectionTables   Collection = "tables"
	CollectionProducts Collection = "products"
	CollectionOrders   Collection = "orders"
)

// Collections retorna as três coleções suportadas
func Collections() []Collection {
	return []Collection{CollectionTables, CollectionProducts, CollectionOrders}
}

func (c Collection) Valid() bool {
	switch c {
	case CollectionTables, CollectionProducts, CollectionOrders:
		return true
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}
