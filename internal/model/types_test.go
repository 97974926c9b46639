package model

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beatAt(t time.Time, status int) Heartbeat {
	return Heartbeat{Status: status, Time: NewFlexTime(t)}
}

func TestSortHeartbeatsNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	list := []Heartbeat{
		beatAt(base.Add(1*time.Minute), StatusUp),
		beatAt(base.Add(3*time.Minute), StatusDown),
		beatAt(base.Add(2*time.Minute), StatusUp),
	}

	SortHeartbeats(list)

	require.Len(t, list, 3)
	assert.Equal(t, base.Add(3*time.Minute), list[0].Time.Time())
	assert.Equal(t, base.Add(2*time.Minute), list[1].Time.Time())
	assert.Equal(t, base.Add(1*time.Minute), list[2].Time.Time())
}

func TestSortHeartbeatsStable(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	list := []Heartbeat{
		{Status: StatusUp, Time: NewFlexTime(ts), Msg: "first"},
		{Status: StatusDown, Time: NewFlexTime(ts), Msg: "second"},
	}

	SortHeartbeats(list)

	// Equal timestamps keep arrival order
	assert.Equal(t, "first", list[0].Msg)
	assert.Equal(t, "second", list[1].Msg)
}

func TestTruncateHeartbeats(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	list := make([]Heartbeat, 0, MaxHeartbeats+20)
	for i := 0; i < MaxHeartbeats+20; i++ {
		list = append(list, beatAt(base.Add(time.Duration(i)*time.Second), StatusUp))
	}

	truncated := TruncateHeartbeats(list)
	assert.Len(t, truncated, MaxHeartbeats)

	// Idempotent: truncating again changes nothing
	again := TruncateHeartbeats(truncated)
	assert.Len(t, again, MaxHeartbeats)
	assert.Equal(t, truncated[0], again[0])
}

func TestTruncateHeartbeatsShortList(t *testing.T) {
	list := []Heartbeat{beatAt(time.Now(), StatusUp)}
	assert.Len(t, TruncateHeartbeats(list), 1)
	assert.Empty(t, TruncateHeartbeats(nil))
}

func TestHeadStatus(t *testing.T) {
	m := Monitor{}
	status, ok := m.HeadStatus()
	assert.False(t, ok)
	assert.Equal(t, StatusDown, status)

	m.HeartBeatList = []Heartbeat{beatAt(time.Now(), StatusUp)}
	status, ok = m.HeadStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusUp, status)
}

func TestMonitorClone(t *testing.T) {
	parent := FlexInt(3)
	year := 99.5
	m := Monitor{
		ID:            FlexInt(1),
		Name:          "Site",
		Parent:        &parent,
		ChildrenIDs:   []FlexInt{4, 5},
		Tags:          []Tag{{ID: 1, Name: "prod", Color: "#f00"}},
		HeartBeatList: []Heartbeat{beatAt(time.Now(), StatusUp)},
		Uptime:        Uptime{Day: 0.9, Month: 0.95, Year: &year},
	}

	clone := m.Clone()

	// Mutating the clone must not touch the original
	clone.HeartBeatList[0].Status = StatusDown
	clone.ChildrenIDs[0] = 9
	*clone.Parent = 8
	*clone.Uptime.Year = 1.0

	assert.Equal(t, StatusUp, m.HeartBeatList[0].Status)
	assert.Equal(t, FlexInt(4), m.ChildrenIDs[0])
	assert.Equal(t, FlexInt(3), *m.Parent)
	assert.Equal(t, 99.5, *m.Uptime.Year)
}

func TestCloneMonitors(t *testing.T) {
	assert.Nil(t, CloneMonitors(nil))

	src := []Monitor{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	dst := CloneMonitors(src)
	require.Len(t, dst, 2)

	dst[0].Name = "changed"
	assert.Equal(t, "a", src[0].Name)
}

func TestMonitorUnmarshalCoercion(t *testing.T) {
	payload := `{
		"id": "12",
		"name": "API",
		"type": "http",
		"active": 1,
		"maintenance": 0,
		"parent": "3",
		"childrenIDs": ["4", 5],
		"uptime": {"day": 0.5, "month": 0.75}
	}`

	var m Monitor
	require.NoError(t, json.Unmarshal([]byte(payload), &m))

	assert.Equal(t, int64(12), m.ID.Int64())
	assert.True(t, m.Active.Bool())
	assert.False(t, m.Maintenance.Bool())
	require.NotNil(t, m.Parent)
	assert.Equal(t, int64(3), m.Parent.Int64())
	require.Len(t, m.ChildrenIDs, 2)
	assert.Equal(t, int64(4), m.ChildrenIDs[0].Int64())
	assert.Equal(t, 0.5, m.Uptime.Day)
	assert.Nil(t, m.Uptime.Year)
}

func TestMonitorJSONRoundTrip(t *testing.T) {
	m := Monitor{
		ID:     FlexInt(7),
		Name:   "DB",
		Type:   "postgres",
		Active: true,
		HeartBeatList: []Heartbeat{
			{MonitorID: 7, Status: StatusUp, Ping: 12.5, Msg: "ok",
				Time: NewFlexTime(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))},
		},
		AvgPing: 14.2,
		Uptime:  Uptime{Day: 1, Month: 0.999},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back Monitor
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, m.Name, back.Name)
	assert.Equal(t, m.AvgPing, back.AvgPing)
	require.Len(t, back.HeartBeatList, 1)
	assert.True(t, back.HeartBeatList[0].Time.Time().Equal(m.HeartBeatList[0].Time.Time()))
	assert.Equal(t, fmt.Sprintf("%v", m.Uptime), fmt.Sprintf("%v", back.Uptime))
}
