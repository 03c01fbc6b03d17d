package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskboard/api/internal/store"
)

func TestDynamicColor(t *testing.T) {
	// Late in the day so a timestamp comparison would round differently
	// from a calendar one.
	now := time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC)
	green := "green"

	cases := []struct {
		name  string
		due   *string
		theme *string
		want  *string
	}{
		{name: "no due date keeps theme", theme: &green, want: &green},
		{name: "no due date no theme", want: nil},
		{name: "yesterday", due: ptr("2024-06-09"), want: ptr(colorOverdue)},
		{name: "today", due: ptr("2024-06-10"), want: ptr(colorDueSoon)},
		{name: "tomorrow", due: ptr("2024-06-11"), want: ptr(colorDueSoon)},
		{name: "in two days", due: ptr("2024-06-12"), want: ptr(colorUpcoming)},
		{name: "in three days", due: ptr("2024-06-13"), theme: &green, want: ptr(colorUpcoming)},
		{name: "in four days with theme", due: ptr("2024-06-14"), theme: &green, want: &green},
		{name: "in four days without theme", due: ptr("2024-06-14"), want: ptr(colorDefault)},
		{name: "unparseable date", due: ptr("soon"), theme: &green, want: &green},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DynamicColor(store.Task{DueDate: tc.due, ColorTheme: tc.theme}, now)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tc.want, *got)
			}
		})
	}
}

func TestTaskViewUsesServiceClock(t *testing.T) {
	svc := &Service{now: func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) }}
	view := svc.view(store.Task{DueDate: ptr("2023-12-31")})
	if assert.NotNil(t, view.DynamicColor) {
		assert.Equal(t, colorOverdue, *view.DynamicColor)
	}
}
