package domain

// Customer places orders. Immutable once seeded.
type Customer struct {
	ID    int64
	Name  string
	Phone string
}

// Restaurant prepares orders. Immutable once seeded.
type Restaurant struct {
	ID      int64
	Name    string
	Address string
}
