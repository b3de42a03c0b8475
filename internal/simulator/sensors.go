package simulator

import (
	"context"
	"math/rand/v2"
	"time"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/models"
)

// ----------- Engine model constants -----------
const (
	AmbientC        = 25.0  // ambient temperature °C
	OperatingC      = 90.0  // thermostat-regulated coolant temperature °C
	WarmUpCPerSec   = 1.5   // °C per second while warming up
	IdleRPM         = 800.0 // idle speed
	RPMJitter       = 40.0  // ± rpm noise at idle
	ChargingVolts   = 14.1  // alternator output with engine running
	FuelRailKPa     = 350.0 // regulated fuel rail pressure
	OilKPaPerKRPM   = 180.0 // oil pressure per 1000 rpm
	IntakeOverAmbC  = 8.0   // intake air above ambient at idle
	ReferenceOdoKm  = 12873 // odometer of the reference vehicle
	ReferenceIgnCnt = 2491  // ignition cycles of the reference vehicle
)

// sensorModel is the drifting engine state behind the sensor feed.
// Only the generator goroutine touches it.
type sensorModel struct {
	coolantC  float64
	rpm       float64
	updatedAt time.Time
}

func newSensorModel() *sensorModel {
	return &sensorModel{coolantC: AmbientC, rpm: IdleRPM}
}

// run ticks at rate until ctx is cancelled, publishing one sample per channel.
func (t *Transport) run(ctx context.Context, rate time.Duration, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(rate)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			t.publish(t.model.step(now.UTC()))
		}
	}
}

// step advances the model to now and returns the resulting readings.
func (m *sensorModel) step(now time.Time) []engine.SensorSample {
	elapsed := 0.0
	if !m.updatedAt.IsZero() {
		elapsed = now.Sub(m.updatedAt).Seconds()
	}
	m.updatedAt = now

	m.warmUp(elapsed)
	m.rpm = IdleRPM + (rand.Float64()*2-1)*RPMJitter

	sample := func(ch models.SensorChannel, v float64) engine.SensorSample {
		return engine.SensorSample{Channel: ch, Value: v, SampledAt: now}
	}
	return []engine.SensorSample{
		sample(models.ChannelBatteryVoltage, ChargingVolts+(rand.Float64()*2-1)*0.1),
		sample(models.ChannelEngineRPM, m.rpm),
		sample(models.ChannelCoolantTemp, m.coolantC),
		sample(models.ChannelOilPressure, m.rpm/1000*OilKPaPerKRPM),
		sample(models.ChannelFuelPressure, FuelRailKPa+(rand.Float64()*2-1)*5),
		sample(models.ChannelIntakeTemp, AmbientC+IntakeOverAmbC),
		sample(models.ChannelVehicleSpeed, 0),
		sample(models.ChannelOdometer, ReferenceOdoKm),
		sample(models.ChannelIgnitionCounter, ReferenceIgnCnt),
	}
}

// warmUp moves coolant toward operating temperature.
func (m *sensorModel) warmUp(elapsed float64) {
	if m.coolantC < OperatingC {
		m.coolantC = min(m.coolantC+WarmUpCPerSec*elapsed, OperatingC)
	}
}
