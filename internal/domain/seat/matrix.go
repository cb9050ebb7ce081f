package seat

import "strconv"

// 座席ラベルの列文字。列数は10が上限
const columnLetters = "ABCDEFGHIJ"

// MaxColumns は座席マトリクスの列数の上限
const MaxColumns = len(columnLetters)

// Matrix は便ごとの座席レイアウトと占有状態を表す
type Matrix struct {
	Rows     int
	Columns  int
	Occupied []string
}

// NewMatrix は指定の行・列数で空のマトリクスを作成する
func NewMatrix(rows, columns int) Matrix {
	return Matrix{Rows: rows, Columns: columns, Occupied: []string{}}
}

// OccupiedCount は占有済み座席数を返す
func (m *Matrix) OccupiedCount() int {
	return len(m.Occupied)
}

// IsOccupied はラベルが占有済みかを返す
func (m *Matrix) IsOccupied(label string) bool {
	for _, o := range m.Occupied {
		if o == label {
			return true
		}
	}
	return false
}

// Occupy はラベルを占有済みに追加する
// 既に占有済みの場合は ErrSeatAlreadyOccupied を返す
func (m *Matrix) Occupy(label string) error {
	if m.IsOccupied(label) {
		return ErrSeatAlreadyOccupied
	}
	m.Occupied = append(m.Occupied, label)
	return nil
}

// Release はラベルを占有済みから外す
// 占有されていない場合は ErrSeatNotOccupied を返す
func (m *Matrix) Release(label string) error {
	for i, o := range m.Occupied {
		if o == label {
			m.Occupied = append(m.Occupied[:i], m.Occupied[i+1:]...)
			return nil
		}
	}
	return ErrSeatNotOccupied
}

// AllLabels は行・列数から座席ラベルを順序付きで列挙する
// 1A,1B,...,1{列数文字},2A,... の順で totalSeats 件に切り詰める
// マトリクス容量が totalSeats を超える場合、最終行は部分的にしか使われない
func AllLabels(rows, columns, totalSeats int) []string {
	if rows <= 0 || columns <= 0 || totalSeats <= 0 {
		return nil
	}
	if columns > MaxColumns {
		columns = MaxColumns
	}
	capacity := rows * columns
	if totalSeats < capacity {
		capacity = totalSeats
	}
	labels := make([]string, 0, capacity)
	for row := 1; row <= rows; row++ {
		for col := 0; col < columns; col++ {
			if len(labels) == capacity {
				return labels
			}
			labels = append(labels, Label(row, col))
		}
	}
	return labels
}

// Label は行番号と列インデックスから座席ラベルを生成する（例: 1A）
func Label(row, col int) string {
	return strconv.Itoa(row) + string(columnLetters[col])
}

// FreeLabels はマトリクスの未占有ラベルを列挙順で返す
func (m *Matrix) FreeLabels(totalSeats int) []string {
	all := AllLabels(m.Rows, m.Columns, totalSeats)
	if len(m.Occupied) == 0 {
		return all
	}
	occupied := make(map[string]struct{}, len(m.Occupied))
	for _, o := range m.Occupied {
		occupied[o] = struct{}{}
	}
	// Occupied が列挙外のラベルを含んでいても容量が負にならないようにする
	free := make([]string, 0, len(all))
	for _, label := range all {
		if _, ok := occupied[label]; !ok {
			free = append(free, label)
		}
	}
	return free
}

// IsValidLabel はラベルがマトリクスの有効な座席を指すかを返す
func (m *Matrix) IsValidLabel(label string, totalSeats int) bool {
	for _, l := range AllLabels(m.Rows, m.Columns, totalSeats) {
		if l == label {
			return true
		}
	}
	return false
}
