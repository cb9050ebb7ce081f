package seat

import "math/rand"

// Picker は空席リストから1つのインデックスを選ぶ関数
// 乱数を注入可能にしてテストで割り当てを決定的にする
type Picker func(n int) int

// Allocator は空席から1席を選んで占有する
type Allocator struct {
	pick Picker
}

// NewAllocator は新しいAllocatorを作成する
// pick が nil の場合は一様乱数で選択する
func NewAllocator(pick Picker) *Allocator {
	if pick == nil {
		pick = rand.Intn
	}
	return &Allocator{pick: pick}
}

// Allocate はマトリクスの空席から1席を選び、占有済みに追加してラベルを返す
// 空席がない場合は ErrNoSeatsAvailable を返す
func (a *Allocator) Allocate(m *Matrix, totalSeats int) (string, error) {
	free := m.FreeLabels(totalSeats)
	if len(free) == 0 {
		return "", ErrNoSeatsAvailable
	}
	label := free[a.pick(len(free))]
	if err := m.Occupy(label); err != nil {
		return "", err
	}
	return label, nil
}
