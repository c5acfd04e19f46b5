package mqtingestor

import (
	"fmt"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

func tempReading(device string, value float64, ts int64) mqtmodels.Reading {
	return mqtmodels.Reading{
		Channel:   mqtmodels.ChannelTemperature,
		DeviceID:  device,
		Value:     mqtmodels.Float64(value),
		Timestamp: ts,
	}
}

func TestChannelBuffer_LatestWinsIgnoringTimestamp(t *testing.T) {
	b := NewChannelBuffer()

	b.Set(mqtmodels.ChannelTemperature, tempReading("D1", 20, 2000))
	b.Set(mqtmodels.ChannelTemperature, tempReading("D1", 21, 1000))

	got, ok := b.Get(mqtmodels.ChannelTemperature)
	require.True(t, ok)
	assert.Equal(t, 21.0, *got.Value)
	assert.Equal(t, int64(1000), got.Timestamp)

	drained := b.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, 21.0, *drained[0].Value)
}

func TestChannelBuffer_DrainClears(t *testing.T) {
	b := NewChannelBuffer()
	b.Set(mqtmodels.ChannelTemperature, tempReading("D1", 20, 1))
	b.Set(mqtmodels.ChannelDoor, mqtmodels.Reading{DeviceID: "D1", Status: "LOCKED", Timestamp: 2})

	first := b.Drain()
	require.Len(t, first, 2)
	assert.Equal(t, mqtmodels.ChannelTemperature, first[0].Channel)
	assert.Equal(t, mqtmodels.ChannelDoor, first[1].Channel)

	assert.Empty(t, b.Drain())
	_, ok := b.Get(mqtmodels.ChannelDoor)
	assert.False(t, ok)
}

func TestChannelBuffer_SnapshotRetains(t *testing.T) {
	b := NewChannelBuffer()
	b.Set(mqtmodels.ChannelHumidity, mqtmodels.Reading{DeviceID: "D1", Value: mqtmodels.Float64(55), Timestamp: 1})

	assert.Len(t, b.Snapshot(), 1)
	assert.Len(t, b.Snapshot(), 1)

	_, ok := b.Get(mqtmodels.ChannelHumidity)
	assert.True(t, ok)
}

func TestChannelBuffer_ReturnedReadingsAreCopies(t *testing.T) {
	b := NewChannelBuffer()
	b.Set(mqtmodels.ChannelLight, mqtmodels.Reading{DeviceID: "D1", Value: mqtmodels.Float64(300), Timestamp: 1})

	snap := b.Snapshot()
	*snap[0].Value = 1

	got, _ := b.Get(mqtmodels.ChannelLight)
	assert.Equal(t, 300.0, *got.Value)
}

func TestChannelBuffer_RestoreNeverOverridesNewer(t *testing.T) {
	b := NewChannelBuffer()
	b.Set(mqtmodels.ChannelTemperature, tempReading("D1", 20, 1))
	failed := b.Drain()[0]

	b.Set(mqtmodels.ChannelTemperature, tempReading("D1", 25, 2))
	assert.False(t, b.Restore(failed))

	got, _ := b.Get(mqtmodels.ChannelTemperature)
	assert.Equal(t, 25.0, *got.Value)

	b.Drain()
	assert.True(t, b.Restore(failed))
	got, _ = b.Get(mqtmodels.ChannelTemperature)
	assert.Equal(t, 20.0, *got.Value)
}

func TestChannelBuffer_UnknownChannel(t *testing.T) {
	b := NewChannelBuffer()
	assert.False(t, b.Set("pressure", mqtmodels.Reading{}))
	assert.False(t, b.Restore(mqtmodels.Reading{Channel: "pressure"}))
	_, ok := b.Get("pressure")
	assert.False(t, ok)
	assert.Empty(t, b.Drain())
}

// Every reading written has value == timestamp and device == "D<timestamp>";
// a torn read would break that relation.
func TestChannelBuffer_ConcurrentSetAndDrainAreConsistent(t *testing.T) {
	b := NewChannelBuffer()
	const writers, perWriter = 8, 500

	var wg conc.WaitGroup
	for w := 0; w < writers; w++ {
		w := w
		wg.Go(func() {
			for i := 0; i < perWriter; i++ {
				ts := int64(w*perWriter + i)
				ch := mqtmodels.SensorChannels[i%len(mqtmodels.SensorChannels)]
				b.Set(ch, mqtmodels.Reading{
					DeviceID:  fmt.Sprintf("D%d", ts),
					Value:     mqtmodels.Float64(float64(ts)),
					Timestamp: ts,
				})
			}
		})
	}

	var snapshots [][]mqtmodels.Reading
	wg.Go(func() {
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				snapshots = append(snapshots, b.Snapshot())
			} else {
				snapshots = append(snapshots, b.Drain())
			}
		}
	})
	wg.Wait()
	snapshots = append(snapshots, b.Drain())

	for _, snap := range snapshots {
		seen := make(map[mqtmodels.Channel]bool)
		for _, r := range snap {
			assert.False(t, seen[r.Channel], "channel %s appears twice in one drain", r.Channel)
			seen[r.Channel] = true
			require.NotNil(t, r.Value)
			assert.Equal(t, float64(r.Timestamp), *r.Value)
			assert.Equal(t, fmt.Sprintf("D%d", r.Timestamp), r.DeviceID)
		}
	}
}
