package plant

import "time"

// SensorType classifies a sensor reading.
type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorPressure    SensorType = "pressure"
	SensorFlow        SensorType = "flow"
	SensorPower       SensorType = "power"
	SensorVibration   SensorType = "vibration"
	SensorPH          SensorType = "ph"
	SensorHumidity    SensorType = "humidity"
)

// SensorReading is a single measurement from one plant sensor.
type SensorReading struct {
	Timestamp  time.Time  `json:"timestamp"`
	SensorID   string     `json:"sensor_id"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	Location   string     `json:"location"`
	SensorType SensorType `json:"sensor_type"`
}

// ProcessParameters captures the main process measurements for one tick.
type ProcessParameters struct {
	Timestamp            time.Time `json:"timestamp"`
	KilnTemperature      float64   `json:"kiln_temperature"`       // °C, burning zone
	ClinkerTemperature   float64   `json:"clinker_temperature"`    // °C, cooler exit
	PreheaterTemperature float64   `json:"preheater_temperature"`  // °C, stage 1
	KilnPressure         float64   `json:"kiln_pressure"`          // mbar (draft, negative)
	MillPressure         float64   `json:"mill_pressure"`          // bar, grinding circuit
	KilnMotorPower       float64   `json:"kiln_motor_power"`       // kW
	MillMotorPower       float64   `json:"mill_motor_power"`       // kW
	KilnSpeed            float64   `json:"kiln_speed"`             // rpm
	ProductionRate       float64   `json:"production_rate"`        // t/h clinker
	RawMealFlow          float64   `json:"raw_meal_flow"`          // t/h, production × material ratio
	EnergyConsumption    float64   `json:"energy_consumption"`     // kWh/t cement
	FuelSubstitution     float64   `json:"fuel_substitution_rate"` // % alternative fuels
	CementFineness       float64   `json:"cement_fineness"`        // cm²/g Blaine
}

// ChemicalComposition holds the six oxide percentages of a clinker sample.
// The components are sampled independently and are not guaranteed to sum
// to 100.
type ChemicalComposition struct {
	SiO2  float64 `json:"sio2"`
	Al2O3 float64 `json:"al2o3"`
	Fe2O3 float64 `json:"fe2o3"`
	CaO   float64 `json:"cao"`
	MgO   float64 `json:"mgo"`
	SO3   float64 `json:"so3"`
}

// QualityMetrics describes one laboratory quality sample.
type QualityMetrics struct {
	Timestamp          time.Time           `json:"timestamp"`
	Fineness           float64             `json:"fineness"`             // cm²/g Blaine
	Strength3Day       float64             `json:"strength_3d"`          // MPa
	Strength28Day      float64             `json:"strength_28d"`         // MPa
	InitialSettingTime float64             `json:"initial_setting_time"` // minutes
	FinalSettingTime   float64             `json:"final_setting_time"`   // minutes
	QualityScore       float64             `json:"quality_score"`        // 0–100 derived
	DefectCount        int                 `json:"defect_count"`
	Composition        ChemicalComposition `json:"composition"`
}

// EquipmentState is the operational state of one equipment unit.
type EquipmentState string

const (
	EquipmentRunning     EquipmentState = "running"
	EquipmentMaintenance EquipmentState = "maintenance"
	EquipmentFault       EquipmentState = "fault"
)

// AlertSeverity grades equipment alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a free-text notification attached to an equipment unit.
type Alert struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Acknowledged bool          `json:"acknowledged"`
	Resolved     bool          `json:"resolved"`
}

// EquipmentStatus describes one of the fixed plant equipment units.
type EquipmentStatus struct {
	UnitID          string         `json:"unit_id"`
	Name            string         `json:"name"`
	Status          EquipmentState `json:"status"`
	Efficiency      float64        `json:"efficiency"`  // %
	Temperature     float64        `json:"temperature"` // °C
	Vibration       float64        `json:"vibration"`   // mm/s
	RuntimeHours    float64        `json:"runtime_hours"`
	LastMaintenance time.Time      `json:"last_maintenance"`
	NextMaintenance time.Time      `json:"next_maintenance"`
	Alerts          []Alert        `json:"alerts"`
}

// EnvironmentalData captures emissions and resource figures for one tick.
type EnvironmentalData struct {
	Timestamp        time.Time `json:"timestamp"`
	CO2Emissions     float64   `json:"co2_emissions"`     // kg/t clinker
	NOxEmissions     float64   `json:"nox_emissions"`     // mg/Nm³
	SO2Emissions     float64   `json:"so2_emissions"`     // mg/Nm³
	DustEmissions    float64   `json:"dust_emissions"`    // mg/Nm³
	SpecificEnergy   float64   `json:"specific_energy"`   // kWh/t cement
	FuelSubstitution float64   `json:"fuel_substitution"` // %
	HeatRecovery     float64   `json:"heat_recovery"`     // kW recovered
	WaterUse         float64   `json:"water_use"`         // l/t cement
}

// PlantOverview is the aggregate headline view derived from the other records.
type PlantOverview struct {
	Timestamp         time.Time `json:"timestamp"`
	OverallEfficiency float64   `json:"overall_efficiency"` // %
	CurrentProduction float64   `json:"current_production"` // t/h
	TargetProduction  float64   `json:"target_production"`  // t/h
	EnergyConsumption float64   `json:"energy_consumption"` // kWh/t
	AvgQualityScore   float64   `json:"avg_quality_score"`
	ActiveAlerts      int       `json:"active_alerts"`
	RunningEquipment  int       `json:"running_equipment"`
	TotalEquipment    int       `json:"total_equipment"`
	EmissionCompliant bool      `json:"emission_compliant"`
}

// DashboardSnapshot bundles one consistent plant state for a single
// broadcast tick. Snapshots are immutable once constructed and shared by
// reference with all subscribers.
type DashboardSnapshot struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"` // "simulated" or "real"
	Sensors       []SensorReading   `json:"sensors"`
	Process       ProcessParameters `json:"process"`
	Quality       QualityMetrics    `json:"quality"`
	Equipment     []EquipmentStatus `json:"equipment"`
	Environmental EnvironmentalData `json:"environmental"`
	Overview      PlantOverview     `json:"overview"`
}
