package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllLabels(t *testing.T) {
	tests := []struct {
		name       string
		rows       int
		columns    int
		totalSeats int
		expected   []string
	}{
		{
			name: "1行2列", rows: 1, columns: 2, totalSeats: 2,
			expected: []string{"1A", "1B"},
		},
		{
			name: "2行3列", rows: 2, columns: 3, totalSeats: 6,
			expected: []string{"1A", "1B", "1C", "2A", "2B", "2C"},
		},
		{
			name: "最終行が部分的に使われる", rows: 2, columns: 3, totalSeats: 4,
			expected: []string{"1A", "1B", "1C", "2A"},
		},
		{
			name: "総座席数0", rows: 1, columns: 2, totalSeats: 0,
			expected: nil,
		},
		{
			name: "行数0", rows: 0, columns: 2, totalSeats: 2,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AllLabels(tt.rows, tt.columns, tt.totalSeats))
		})
	}
}

func TestAllLabels_ColumnsCappedAtTen(t *testing.T) {
	labels := AllLabels(1, 15, 10)
	require.Len(t, labels, 10)
	assert.Equal(t, "1A", labels[0])
	assert.Equal(t, "1J", labels[9])
}

func TestAllLabels_Deterministic(t *testing.T) {
	first := AllLabels(40, 10, 400)
	second := AllLabels(40, 10, 400)
	assert.Equal(t, first, second)
	assert.Len(t, first, 400)
	assert.Equal(t, "40J", first[399])
}

func TestMatrix_Occupy(t *testing.T) {
	t.Run("空席を占有できる", func(t *testing.T) {
		m := NewMatrix(1, 2)

		err := m.Occupy("1A")

		require.NoError(t, err)
		assert.True(t, m.IsOccupied("1A"))
		assert.Equal(t, 1, m.OccupiedCount())
	})

	t.Run("同じ座席は二重に占有できない", func(t *testing.T) {
		m := NewMatrix(1, 2)
		require.NoError(t, m.Occupy("1A"))

		err := m.Occupy("1A")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatAlreadyOccupied)
		assert.Equal(t, 1, m.OccupiedCount())
	})
}

func TestMatrix_Release(t *testing.T) {
	t.Run("占有済み座席を解放できる", func(t *testing.T) {
		m := NewMatrix(1, 2)
		require.NoError(t, m.Occupy("1A"))

		err := m.Release("1A")

		require.NoError(t, err)
		assert.False(t, m.IsOccupied("1A"))
	})

	t.Run("占有されていない座席は解放できない", func(t *testing.T) {
		m := NewMatrix(1, 2)

		err := m.Release("1A")

		assert.ErrorIs(t, err, ErrSeatNotOccupied)
	})
}

func TestMatrix_FreeLabels(t *testing.T) {
	m := NewMatrix(1, 2)
	require.NoError(t, m.Occupy("1A"))

	free := m.FreeLabels(2)

	assert.Equal(t, []string{"1B"}, free)
}

func TestMatrix_FreeLabels_CorruptedOccupied(t *testing.T) {
	// 列挙外のラベルが混入していても panic せず、残りの空席を返す
	m := NewMatrix(1, 2)
	m.Occupied = []string{"1A", "9Z", "8X", "7Y"}

	free := m.FreeLabels(2)

	assert.Equal(t, []string{"1B"}, free)
}

func TestMatrix_IsValidLabel(t *testing.T) {
	m := NewMatrix(2, 3)

	assert.True(t, m.IsValidLabel("1A", 6))
	assert.True(t, m.IsValidLabel("2C", 6))
	assert.False(t, m.IsValidLabel("3A", 6))
	assert.False(t, m.IsValidLabel("1D", 6))
	// 最終行が部分使用の場合、切り詰め以降は無効
	assert.False(t, m.IsValidLabel("2C", 5))
}
