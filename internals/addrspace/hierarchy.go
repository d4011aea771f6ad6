package addrspace

import "github.com/Shah-2024/industrial-iot-opcua-monitor/internals/reading"

// Node and subtree names, matching the address space the original SCADA
// clients browse.
const (
	RootFolder = "SensorData"

	SubtreeDHT11  = "DHT11_Sensor"
	SubtreeINA219 = "INA219_PowerMonitor"
	SubtreeHCSR04 = "HCSR04_Distance"
	SubtreeSystem = "SystemInfo"

	NodeTemperatureC   = "Temperature_C"
	NodeTemperatureF   = "Temperature_F"
	NodeHumidity       = "Humidity_Percent"
	NodeVoltage        = "Voltage_V"
	NodeCurrent        = "Current_A"
	NodePower          = "Power_W"
	NodeDistanceCM     = "Distance_cm"
	NodeDistanceInches = "Distance_inches"
	NodeStatus         = "Status"
	NodeLastUpdate     = "LastUpdate"
	NodeUptimeSeconds  = "Uptime_seconds"
)

// SubtreeFor maps a sensor channel to its subtree name.
func SubtreeFor(c reading.Channel) string {
	switch c {
	case reading.ChannelThermal:
		return SubtreeDHT11
	case reading.ChannelPower:
		return SubtreeINA219
	case reading.ChannelRanging:
		return SubtreeHCSR04
	default:
		return ""
	}
}

// BuildSensorHierarchy constructs the fixed address space tree. Value
// nodes start at 0.0 sentinels and Status nodes at SENSOR_ERROR, so a
// client polling before the first successful cycle sees Status≠0 rather
// than a fake healthy zero reading.
//
// No node in the base hierarchy is client-writable: every sensor value is
// derived from hardware and Status is engine-exclusive. The writable flag
// exists for future setpoint-style nodes.
func BuildSensorHierarchy() *Space {
	sp := &Space{
		root:     RootFolder,
		subtrees: make(map[string]*Subtree),
	}

	dht := sp.addSubtree(SubtreeDHT11)
	dht.addNode(floatNode(NodeTemperatureC))
	dht.addNode(floatNode(NodeTemperatureF))
	dht.addNode(floatNode(NodeHumidity))
	dht.addNode(statusNode())

	ina := sp.addSubtree(SubtreeINA219)
	ina.addNode(floatNode(NodeVoltage))
	ina.addNode(floatNode(NodeCurrent))
	ina.addNode(floatNode(NodePower))
	ina.addNode(statusNode())

	sr04 := sp.addSubtree(SubtreeHCSR04)
	sr04.addNode(floatNode(NodeDistanceCM))
	sr04.addNode(floatNode(NodeDistanceInches))
	sr04.addNode(statusNode())

	sys := sp.addSubtree(SubtreeSystem)
	sys.addNode(&Node{name: NodeLastUpdate, valueType: String, value: ""})
	sys.addNode(&Node{name: NodeUptimeSeconds, valueType: Float, value: 0.0})

	return sp
}

func (sp *Space) addSubtree(name string) *Subtree {
	st := &Subtree{
		name:  name,
		nodes: make(map[string]*Node),
	}
	sp.subtrees[name] = st
	sp.order = append(sp.order, name)
	return st
}

func floatNode(name string) *Node {
	return &Node{name: name, valueType: Float, value: 0.0}
}

func statusNode() *Node {
	return &Node{
		name:       NodeStatus,
		valueType:  Int32,
		statusNode: true,
		value:      int32(reading.StatusSensorError),
	}
}
