package ts

// move — обмен соседних позиций i и j в очереди станка machine.
type move struct {
	machine int
	i, j    int
}

// tabuList — структура табу-списка.
// Реализована как кольцевой буфер на TabuTenure ходов
// со счётчиками в map для быстрой проверки табуированности.
// При переполнении вытесняется самый старый ход.
type tabuList struct {
	count map[move]int // ход → сколько раз он есть в буфере
	ring  []move       // кольцевой буфер ходов
	i     int          // позиция записи; при заполненном буфере — самый старый ход
	size  int
}

// newTabuList создаёт табу-список заданной длины.
func newTabuList(tenure int) *tabuList {
	return &tabuList{
		count: make(map[move]int, tenure),
		ring:  make([]move, tenure),
	}
}

// IsTabu проверяет, находится ли ход в табу-списке.
func (t *tabuList) IsTabu(m move) bool {
	return t.count[m] > 0
}

// Add добавляет ход, вытесняя самый старый при переполнении.
func (t *tabuList) Add(m move) {
	if len(t.ring) == 0 {
		return
	}
	if t.size == len(t.ring) {
		old := t.ring[t.i]
		if t.count[old]--; t.count[old] <= 0 {
			delete(t.count, old)
		}
	} else {
		t.size++
	}

	t.ring[t.i] = m
	t.count[m]++

	t.i++
	if t.i >= len(t.ring) {
		t.i = 0
	}
}

func (t *tabuList) Len() int { return t.size }
