package addrspace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"
)

func TestHierarchyShape(t *testing.T) {
	sp := BuildSensorHierarchy()

	assert.Equal(t, RootFolder, sp.Root())
	assert.Equal(t,
		[]string{SubtreeDHT11, SubtreeINA219, SubtreeHCSR04, SubtreeSystem},
		sp.SubtreeNames())

	assert.Equal(t,
		[]string{NodeTemperatureC, NodeTemperatureF, NodeHumidity, NodeStatus},
		sp.Subtree(SubtreeDHT11).NodeNames())
	assert.Equal(t,
		[]string{NodeVoltage, NodeCurrent, NodePower, NodeStatus},
		sp.Subtree(SubtreeINA219).NodeNames())
	assert.Equal(t,
		[]string{NodeDistanceCM, NodeDistanceInches, NodeStatus},
		sp.Subtree(SubtreeHCSR04).NodeNames())
	assert.Equal(t,
		[]string{NodeLastUpdate, NodeUptimeSeconds},
		sp.Subtree(SubtreeSystem).NodeNames())
}

func TestInitialSentinels(t *testing.T) {
	sp := BuildSensorHierarchy()

	// Before the first successful cycle, Status must read as non-OK so
	// clients can tell "never sampled" from a healthy zero reading.
	v, err := sp.Read("SensorData/DHT11_Sensor/Status")
	require.NoError(t, err)
	assert.Equal(t, int32(reading.StatusSensorError), v)

	v, err = sp.Read("SensorData/DHT11_Sensor/Temperature_C")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = sp.Read("SensorData/SystemInfo/LastUpdate")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestReadUnknownPath(t *testing.T) {
	sp := BuildSensorHierarchy()

	for _, path := range []string{
		"SensorData/DHT11_Sensor/NoSuchNode",
		"SensorData/NoSuchSensor/Status",
		"WrongRoot/DHT11_Sensor/Status",
		"SensorData/DHT11_Sensor",
		"SensorData/DHT11_Sensor/Status/Extra",
		"",
	} {
		_, err := sp.Read(path)
		assert.ErrorIs(t, err, ErrNotFound, "path %q", path)
	}
}

func TestClientWriteRejections(t *testing.T) {
	sp := BuildSensorHierarchy()

	// Nothing in the base hierarchy is client-writable.
	err := sp.Write("SensorData/DHT11_Sensor/Temperature_C", 25.0)
	assert.ErrorIs(t, err, ErrNotWritable)

	// Status nodes are rejected with their own error.
	err = sp.Write("SensorData/INA219_PowerMonitor/Status", int32(0))
	assert.ErrorIs(t, err, ErrStatusReadOnly)

	err = sp.Write("SensorData/Bogus/Status", int32(0))
	assert.ErrorIs(t, err, ErrNotFound)

	// Rejected writes change nothing.
	v, err := sp.Read("SensorData/DHT11_Sensor/Temperature_C")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestStatusWriteRejectedEvenIfWritable(t *testing.T) {
	// A Status node stays engine-exclusive even if someone marks it
	// writable by mistake.
	sp := &Space{root: "Root", subtrees: make(map[string]*Subtree)}
	st := sp.addSubtree("Sensor")
	st.addNode(&Node{name: NodeStatus, valueType: Int32, statusNode: true, writable: true, value: int32(0)})

	err := sp.Write("Root/Sensor/Status", int32(3))
	assert.ErrorIs(t, err, ErrStatusReadOnly)
}

func TestWritableNodeLastWriterWins(t *testing.T) {
	sp := &Space{root: "Root", subtrees: make(map[string]*Subtree)}
	st := sp.addSubtree("Control")
	st.addNode(&Node{name: "Setpoint_C", valueType: Float, writable: true, value: 21.0})

	require.NoError(t, sp.Write("Root/Control/Setpoint_C", 23.5))
	v, err := sp.Read("Root/Control/Setpoint_C")
	require.NoError(t, err)
	assert.Equal(t, 23.5, v)

	src, err := sp.LastWriteSource("Root/Control/Setpoint_C")
	require.NoError(t, err)
	assert.Equal(t, SourceClient, src)

	// An engine batch over the same node wins by wall-clock order and is
	// recorded as the new source.
	require.NoError(t, sp.ApplyBatch("Control", map[string]any{"Setpoint_C": 19.0}))
	v, _ = sp.Read("Root/Control/Setpoint_C")
	assert.Equal(t, 19.0, v)
	src, _ = sp.LastWriteSource("Root/Control/Setpoint_C")
	assert.Equal(t, SourceEngine, src)
}

func TestWriteTypeMismatch(t *testing.T) {
	sp := &Space{root: "Root", subtrees: make(map[string]*Subtree)}
	st := sp.addSubtree("Control")
	st.addNode(&Node{name: "Setpoint_C", valueType: Float, writable: true, value: 21.0})

	err := sp.Write("Root/Control/Setpoint_C", "warm")
	assert.ErrorIs(t, err, ErrValueType)
	v, _ := sp.Read("Root/Control/Setpoint_C")
	assert.Equal(t, 21.0, v)
}

func TestApplyBatchValidatesBeforeApplying(t *testing.T) {
	sp := BuildSensorHierarchy()

	// One bad value in the batch must leave the whole subtree untouched.
	err := sp.ApplyBatch(SubtreeDHT11, map[string]any{
		NodeTemperatureC: 22.0,
		NodeStatus:       "broken",
	})
	assert.ErrorIs(t, err, ErrValueType)

	v, _ := sp.Read("SensorData/DHT11_Sensor/Temperature_C")
	assert.Equal(t, 0.0, v)

	err = sp.ApplyBatch(SubtreeDHT11, map[string]any{"NoSuchNode": 1.0})
	assert.ErrorIs(t, err, ErrNotFound)

	err = sp.ApplyBatch("NoSuchSubtree", map[string]any{NodeStatus: int32(0)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyBatchAcceptsIntWidthsForInt32(t *testing.T) {
	sp := BuildSensorHierarchy()

	require.NoError(t, sp.ApplyBatch(SubtreeDHT11, map[string]any{NodeStatus: 1}))
	v, _ := sp.Read("SensorData/DHT11_Sensor/Status")
	assert.Equal(t, int32(1), v)
}

// TestBatchAtomicityUnderConcurrentReads hammers one subtree with batch
// writes where the derived value is a fixed function of the primary, while
// readers verify they never observe values from two different batches.
func TestBatchAtomicityUnderConcurrentReads(t *testing.T) {
	sp := BuildSensorHierarchy()

	const cycles = 2000
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := sp.Subtree(SubtreeDHT11).Snapshot()
				c := snap[NodeTemperatureC].(float64)
				f := snap[NodeTemperatureF].(float64)
				// Exact equality is intended: both values come from
				// the same float64 inputs in the same batch.
				if f != c*9.0/5.0+32.0 {
					t.Errorf("torn read: C=%v F=%v", c, f)
					return
				}
			}
		}()
	}

	for i := 1; i <= cycles; i++ {
		c := float64(i)
		err := sp.ApplyBatch(SubtreeDHT11, map[string]any{
			NodeTemperatureC: c,
			NodeTemperatureF: c*9.0/5.0 + 32.0,
			NodeStatus:       int32(0),
		})
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
}
