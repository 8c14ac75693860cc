package visits_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campus-labs/campus/internal/visits"
)

func TestEntriesTable(t *testing.T) {
	at := time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)
	uid := int64(2)
	table := visits.EntriesTable([]visits.Entry{
		{ID: 2, UserID: &uid, Login: "student", Path: "/courses", CreatedAt: at},
		{ID: 1, Path: "/", CreatedAt: at.Add(-time.Minute)},
	})

	want := "№, path, login, created_at\n" +
		"1, /courses, student, 2024-05-17 08:30:00\n" +
		"2, /, , 2024-05-17 08:29:00\n"
	assert.Equal(t, want, table.String())
}

func TestPageStatsTableKeepsCommasVerbatim(t *testing.T) {
	table := visits.PageStatsTable([]visits.PageStat{{Path: "/search,a", Count: 4}})

	assert.Equal(t, "№, path, count\n1, /search,a, 4\n", table.String())
}

func TestUserStatsTable(t *testing.T) {
	table := visits.UserStatsTable([]visits.UserStat{
		{LastName: "Ivanova", FirstName: "Anna", MiddleName: "Petrovna", Count: 7},
		{Count: 3},
	})

	want := "№, first_name, last_name, middle_name, count\n" +
		"1, Anna, Ivanova, Petrovna, 7\n" +
		"2, , , , 3\n"
	assert.Equal(t, want, table.String())
}

func TestTableRowCountMatchesData(t *testing.T) {
	stats := make([]visits.PageStat, 25)
	for i := range stats {
		stats[i] = visits.PageStat{Path: "/p", Count: 1}
	}
	lines := strings.Split(strings.TrimSuffix(visits.PageStatsTable(stats).String(), "\n"), "\n")

	assert.Len(t, lines, 26)
	for i, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, strconv.Itoa(i+1)+", "), line)
	}
}
