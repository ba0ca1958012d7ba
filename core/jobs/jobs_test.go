package jobs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableAdd(t *testing.T) {
	var table Table

	first := table.Add(100, "sleep 10")
	assert.Equal(t, Job{ID: 1, PID: 100, Command: "sleep 10", Status: StatusStopped}, first)

	second := table.Add(200, "vim")
	assert.Equal(t, 2, second.ID)

	// IDs are computed from the current table, so removing the highest ID
	// frees it again.
	_, ok := table.PopByID(2)
	assert.True(t, ok)
	assert.Equal(t, 2, table.Add(300, "top").ID)

	// Gaps below the maximum are never filled.
	table.PopByID(1)
	assert.Equal(t, 3, table.Add(400, "less").ID)

	assert.Equal(t, []int{2, 3}, ids(table.List()))
}

func TestTablePop(t *testing.T) {
	var table Table

	_, ok := table.PopLast()
	assert.False(t, ok)
	_, ok = table.PopByID(1)
	assert.False(t, ok)

	table.Add(1, "a")
	table.Add(2, "b")
	table.Add(3, "c")

	job, ok := table.PopLast()
	assert.True(t, ok)
	assert.Equal(t, 3, job.ID)

	job, ok = table.PopByID(1)
	assert.True(t, ok)
	assert.Equal(t, "a", job.Command)

	assert.Equal(t, []int{2}, ids(table.List()))
}

func TestTableRemoveAndClear(t *testing.T) {
	var table Table
	table.Add(10, "a")
	table.Add(20, "b")
	table.Add(10, "c")

	table.RemoveByPID(10)
	assert.Equal(t, []int{2}, ids(table.List()))

	table.Clear()
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 1, table.Add(30, "d").ID)
}

func TestTableConcurrentAdd(t *testing.T) {
	var table Table
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			table.Add(pid, "job")
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, j := range table.List() {
		assert.False(t, seen[j.ID], "duplicate id %d", j.ID)
		seen[j.ID] = true
	}
	assert.Len(t, seen, 50)
}

func ids(list []Job) []int {
	var out []int
	for _, j := range list {
		out = append(out, j.ID)
	}
	return out
}
