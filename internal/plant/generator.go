package plant

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/cementlab/plantpulse/internal/metrics"
)

// Physical bounds and derivation constants for the simulated plant.
// Kiln temperature follows a daily cycle inside its declared envelope;
// clinker leaves the cooler a fixed offset below the burning zone.
const (
	kilnTempBase      = 1450.0 // °C
	kilnTempAmplitude = 30.0
	kilnTempPeriodH   = 24.0
	kilnTempMin       = kilnTempBase - kilnTempAmplitude
	kilnTempMax       = kilnTempBase + kilnTempAmplitude

	clinkerTempOffset = 1330.0 // °C below burning zone at cooler exit
	rawMealRatio      = 1.55   // t raw meal per t clinker

	preheaterTempMin = 820.0
	preheaterTempMax = 900.0
	kilnDraftMin     = -5.0 // mbar
	kilnDraftMax     = -2.0
	millPressureMin  = 1.5 // bar
	millPressureMax  = 2.5
	kilnPowerMin     = 350.0 // kW
	kilnPowerMax     = 520.0
	millPowerMin     = 3200.0 // kW
	millPowerMax     = 4400.0
	kilnSpeedMin     = 2.8 // rpm
	kilnSpeedMax     = 3.6
	energyMin        = 95.0 // kWh/t
	energyMax        = 115.0
	fuelSubstMin     = 15.0 // %
	fuelSubstMax     = 35.0
	finenessMin      = 3200.0 // cm²/g
	finenessMax      = 3800.0

	maintenanceIntervalDays = 90
	alertProbability        = 0.2

	dustLimit = 30.0  // mg/Nm³
	noxLimit  = 500.0 // mg/Nm³
)

// equipmentUnit is one entry of the fixed plant equipment catalog.
type equipmentUnit struct {
	id      string
	name    string
	tempMin float64
	tempMax float64
}

var equipmentCatalog = []equipmentUnit{
	{"kiln_01", "Rotary Kiln", 280, 380},
	{"raw_mill_01", "Raw Mill", 70, 110},
	{"cement_mill_01", "Cement Mill 1", 80, 120},
	{"cement_mill_02", "Cement Mill 2", 80, 120},
	{"cooler_01", "Clinker Cooler", 90, 160},
	{"preheater_fan_01", "Preheater Fan", 60, 95},
	{"baghouse_01", "Baghouse Filter", 40, 80},
	{"packer_01", "Packing Machine", 25, 45},
}

// sensorSpec is one entry of the fixed sensor catalog.
type sensorSpec struct {
	id       string
	unit     string
	location string
	kind     SensorType
	min      float64
	max      float64
}

var sensorCatalog = []sensorSpec{
	{"kiln_temp_01", "°C", "kiln burning zone", SensorTemperature, kilnTempMin, kilnTempMax},
	{"preheater_temp_01", "°C", "preheater stage 1", SensorTemperature, preheaterTempMin, preheaterTempMax},
	{"kiln_draft_01", "mbar", "kiln inlet", SensorPressure, kilnDraftMin, kilnDraftMax},
	{"raw_meal_flow_01", "t/h", "raw mill outlet", SensorFlow, 180, 280},
	{"kiln_motor_power_01", "kW", "kiln main drive", SensorPower, kilnPowerMin, kilnPowerMax},
	{"mill_vibration_01", "mm/s", "cement mill 1 bearing", SensorVibration, 1.0, 6.5},
	{"cooling_water_ph_01", "pH", "water treatment", SensorPH, 6.8, 8.2},
	{"baghouse_humidity_01", "%", "baghouse inlet", SensorHumidity, 20, 60},
}

// GeneratorConfig is consumed at construction time only.
type GeneratorConfig struct {
	PlantCapacity      float64 // tonnes cement per day
	SensorCount        int
	NoiseLevel         float64
	AnomalyProbability float64
}

// Generator produces internally-consistent dashboard snapshots from the
// signal synthesizer. The last generated ProcessParameters instance is
// retained so environmental and overview figures derive from the same
// production rate within a tick.
type Generator struct {
	clock clockwork.Clock
	synth *Synthesizer
	cfg   GeneratorConfig

	mu          sync.Mutex
	lastProcess *ProcessParameters
}

// NewGenerator creates a snapshot generator. SensorCount is capped at the
// size of the fixed sensor catalog.
func NewGenerator(cfg GeneratorConfig, clock clockwork.Clock) *Generator {
	if cfg.SensorCount <= 0 || cfg.SensorCount > len(sensorCatalog) {
		cfg.SensorCount = len(sensorCatalog)
	}
	return &Generator{
		clock: clock,
		synth: NewSynthesizer(clock),
		cfg:   cfg,
	}
}

// GenerateSnapshot composes one full dashboard snapshot. The snapshot is
// immutable once returned.
func (g *Generator) GenerateSnapshot() *DashboardSnapshot {
	start := g.clock.Now()

	snap := &DashboardSnapshot{
		ID:            uuid.NewString(),
		Timestamp:     g.clock.Now(),
		Source:        "simulated",
		Sensors:       g.GenerateSensorReadings(),
		Process:       g.GenerateProcessParameters(),
		Quality:       g.GenerateQualityMetrics(),
		Equipment:     g.GenerateEquipmentStatus(),
		Environmental: g.GenerateEnvironmentalData(),
		Overview:      g.GeneratePlantOverview(),
	}

	metrics.SnapshotGenerationDuration.Observe(g.clock.Since(start).Seconds())
	return snap
}

// GenerateSensorReadings returns a fresh ordered sample of the fixed
// sensor set. Readings are regenerated on every call, never cached.
func (g *Generator) GenerateSensorReadings() []SensorReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	readings := make([]SensorReading, 0, g.cfg.SensorCount)
	for _, spec := range sensorCatalog[:g.cfg.SensorCount] {
		readings = append(readings, SensorReading{
			Timestamp:  now,
			SensorID:   spec.id,
			Value:      g.synth.BoundedRandom(spec.min, spec.max, g.cfg.NoiseLevel),
			Unit:       spec.unit,
			Location:   spec.location,
			SensorType: spec.kind,
		})
	}
	return readings
}

// GenerateProcessParameters returns a fresh process sample and retains it
// for cross-field derivation by the environmental and overview generators.
func (g *Generator) GenerateProcessParameters() ProcessParameters {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateProcessLocked()
}

func (g *Generator) generateProcessLocked() ProcessParameters {
	kilnTemp := clamp(
		g.synth.Cyclical(kilnTempBase, kilnTempAmplitude, kilnTempPeriodH, 0)+
			g.synth.BoundedRandom(-kilnTempAmplitude, kilnTempAmplitude, 0)*g.cfg.NoiseLevel,
		kilnTempMin, kilnTempMax,
	)

	hourlyTarget := g.cfg.PlantCapacity / 24
	production := g.synth.BoundedRandom(hourlyTarget*0.85, hourlyTarget, g.cfg.NoiseLevel)

	p := ProcessParameters{
		Timestamp:            g.clock.Now(),
		KilnTemperature:      kilnTemp,
		ClinkerTemperature:   kilnTemp - clinkerTempOffset,
		PreheaterTemperature: g.synth.BoundedRandom(preheaterTempMin, preheaterTempMax, g.cfg.NoiseLevel),
		KilnPressure:         g.synth.BoundedRandom(kilnDraftMin, kilnDraftMax, g.cfg.NoiseLevel),
		MillPressure:         g.synth.BoundedRandom(millPressureMin, millPressureMax, g.cfg.NoiseLevel),
		KilnMotorPower:       g.synth.BoundedRandom(kilnPowerMin, kilnPowerMax, g.cfg.NoiseLevel),
		MillMotorPower:       g.synth.BoundedRandom(millPowerMin, millPowerMax, g.cfg.NoiseLevel),
		KilnSpeed:            g.synth.BoundedRandom(kilnSpeedMin, kilnSpeedMax, g.cfg.NoiseLevel),
		ProductionRate:       production,
		RawMealFlow:          production * rawMealRatio,
		EnergyConsumption:    g.synth.BoundedRandom(energyMin, energyMax, g.cfg.NoiseLevel),
		FuelSubstitution:     g.synth.BoundedRandom(fuelSubstMin, fuelSubstMax, g.cfg.NoiseLevel),
		CementFineness:       g.synth.BoundedRandom(finenessMin, finenessMax, g.cfg.NoiseLevel),
	}

	g.lastProcess = &p
	return p
}

// GenerateQualityMetrics returns a fresh laboratory quality sample.
func (g *Generator) GenerateQualityMetrics() QualityMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateQualityLocked()
}

func (g *Generator) generateQualityLocked() QualityMetrics {
	fineness := g.synth.BoundedRandom(finenessMin, finenessMax, g.cfg.NoiseLevel)
	strength3 := g.synth.BoundedRandom(25, 35, g.cfg.NoiseLevel)
	strength28 := g.synth.BoundedRandom(45, 60, g.cfg.NoiseLevel)
	defects := 0
	if g.synth.Chance(0.1) {
		defects = 1 + g.synth.IntN(3)
	}

	// Score rewards late strength and an on-target Blaine, penalizes defects.
	score := 60 +
		(strength28-45)/15*30 +
		(1-absf(fineness-3500)/300)*10 -
		float64(defects)*5

	return QualityMetrics{
		Timestamp:          g.clock.Now(),
		Fineness:           fineness,
		Strength3Day:       strength3,
		Strength28Day:      strength28,
		InitialSettingTime: g.synth.BoundedRandom(90, 150, g.cfg.NoiseLevel),
		FinalSettingTime:   g.synth.BoundedRandom(180, 280, g.cfg.NoiseLevel),
		QualityScore:       clamp(score, 0, 100),
		DefectCount:        defects,
		Composition: ChemicalComposition{
			SiO2:  g.synth.BoundedRandom(19, 23, g.cfg.NoiseLevel),
			Al2O3: g.synth.BoundedRandom(4, 6, g.cfg.NoiseLevel),
			Fe2O3: g.synth.BoundedRandom(2, 4, g.cfg.NoiseLevel),
			CaO:   g.synth.BoundedRandom(60, 66, g.cfg.NoiseLevel),
			MgO:   g.synth.BoundedRandom(1, 3, g.cfg.NoiseLevel),
			SO3:   g.synth.BoundedRandom(2, 3.5, g.cfg.NoiseLevel),
		},
	}
}

// GenerateEquipmentStatus draws a fresh status for each of the fixed
// equipment units. Status is drawn independently per unit; alerts attach
// with a fixed probability and carry randomized flags. This is flavor
// data, not a dependable state machine.
func (g *Generator) GenerateEquipmentStatus() []EquipmentStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateEquipmentLocked()
}

func (g *Generator) generateEquipmentLocked() []EquipmentStatus {
	now := g.clock.Now()
	units := make([]EquipmentStatus, 0, len(equipmentCatalog))

	for _, unit := range equipmentCatalog {
		status := EquipmentRunning
		if g.synth.Chance(g.cfg.AnomalyProbability) {
			if g.synth.Chance(0.6) {
				status = EquipmentMaintenance
			} else {
				status = EquipmentFault
			}
		}

		efficiency := g.synth.BoundedRandom(82, 98, g.cfg.NoiseLevel)
		if status != EquipmentRunning {
			efficiency = 0
		}

		lastMaint := now.AddDate(0, 0, -g.synth.IntN(maintenanceIntervalDays))
		es := EquipmentStatus{
			UnitID:          unit.id,
			Name:            unit.name,
			Status:          status,
			Efficiency:      efficiency,
			Temperature:     g.synth.BoundedRandom(unit.tempMin, unit.tempMax, g.cfg.NoiseLevel),
			Vibration:       g.synth.BoundedRandom(1.0, 7.0, g.cfg.NoiseLevel),
			RuntimeHours:    g.synth.BoundedRandom(1000, 60000, g.cfg.NoiseLevel),
			LastMaintenance: lastMaint,
			NextMaintenance: lastMaint.AddDate(0, 0, maintenanceIntervalDays),
		}

		if status == EquipmentFault {
			es.Alerts = append(es.Alerts, g.newAlert(now, unit.name+" reported a fault condition", SeverityCritical))
		}
		if g.synth.Chance(alertProbability) {
			es.Alerts = append(es.Alerts, g.randomAlert(now, unit.name))
		}

		units = append(units, es)
	}
	return units
}

func (g *Generator) newAlert(now time.Time, message string, severity AlertSeverity) Alert {
	return Alert{
		ID:           uuid.NewString(),
		Timestamp:    now,
		Severity:     severity,
		Message:      message,
		Acknowledged: g.synth.Chance(0.5),
		Resolved:     g.synth.Chance(0.3),
	}
}

func (g *Generator) randomAlert(now time.Time, unitName string) Alert {
	severities := []AlertSeverity{SeverityInfo, SeverityWarning, SeverityCritical}
	messages := []string{
		" vibration trending above baseline",
		" temperature approaching upper limit",
		" scheduled inspection due",
		" lubrication level low",
	}
	return g.newAlert(now, unitName+messages[g.synth.IntN(len(messages))], severities[g.synth.IntN(len(severities))])
}

// GenerateEnvironmentalData returns fresh emissions and resource figures.
// Heat recovery scales with the last generated production rate so the
// environmental record stays consistent with the process record of the
// same tick.
func (g *Generator) GenerateEnvironmentalData() EnvironmentalData {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateEnvironmentalLocked()
}

func (g *Generator) generateEnvironmentalLocked() EnvironmentalData {
	if g.lastProcess == nil {
		g.generateProcessLocked()
	}

	return EnvironmentalData{
		Timestamp:        g.clock.Now(),
		CO2Emissions:     g.synth.BoundedRandom(780, 880, g.cfg.NoiseLevel),
		NOxEmissions:     g.synth.BoundedRandom(280, 560, g.cfg.NoiseLevel),
		SO2Emissions:     g.synth.BoundedRandom(20, 120, g.cfg.NoiseLevel),
		DustEmissions:    g.synth.BoundedRandom(5, 35, g.cfg.NoiseLevel),
		SpecificEnergy:   g.lastProcess.EnergyConsumption,
		FuelSubstitution: g.lastProcess.FuelSubstitution,
		HeatRecovery:     g.lastProcess.ProductionRate * g.synth.BoundedRandom(1.8, 2.6, g.cfg.NoiseLevel),
		WaterUse:         g.synth.BoundedRandom(180, 320, g.cfg.NoiseLevel),
	}
}

// GeneratePlantOverview aggregates a headline view. It internally draws a
// new equipment-status sample to compute running and alert counts, so two
// overview reads within the same tick can show different underlying
// equipment realizations than a separately fetched equipment list.
func (g *Generator) GeneratePlantOverview() PlantOverview {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastProcess == nil {
		g.generateProcessLocked()
	}

	equipment := g.generateEquipmentLocked()
	running := 0
	activeAlerts := 0
	var efficiencySum float64
	for _, unit := range equipment {
		if unit.Status == EquipmentRunning {
			running++
			efficiencySum += unit.Efficiency
		}
		for _, alert := range unit.Alerts {
			if !alert.Resolved {
				activeAlerts++
			}
		}
	}

	overallEfficiency := 0.0
	if running > 0 {
		overallEfficiency = efficiencySum / float64(running) * float64(running) / float64(len(equipment))
	}

	quality := g.generateQualityLocked()
	environmental := g.generateEnvironmentalLocked()

	return PlantOverview{
		Timestamp:         g.clock.Now(),
		OverallEfficiency: overallEfficiency,
		CurrentProduction: g.lastProcess.ProductionRate,
		TargetProduction:  g.cfg.PlantCapacity / 24,
		EnergyConsumption: g.lastProcess.EnergyConsumption,
		AvgQualityScore:   quality.QualityScore,
		ActiveAlerts:      activeAlerts,
		RunningEquipment:  running,
		TotalEquipment:    len(equipment),
		EmissionCompliant: environmental.DustEmissions <= dustLimit && environmental.NOxEmissions <= noxLimit,
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
