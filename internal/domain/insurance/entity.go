package insurance

import "time"

// Insurance は旅行保険プランを表す
type Insurance struct {
	ID          string
	Name        string
	Description string
	Price       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewInsurance は新しい保険プランを作成する
func NewInsurance(name, description string, price int) *Insurance {
	now := time.Now()
	return &Insurance{
		Name:        name,
		Description: description,
		Price:       price,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate は保険プランの検証を行う
func (i *Insurance) Validate() error {
	if i.Name == "" {
		return ErrNameRequired
	}
	if i.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
