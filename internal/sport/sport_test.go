package sport

import (
	"testing"

	"github.com/supergeri/workoutcanonicalmapper/internal/category"
)

func TestInferRunningOnly(t *testing.T) {
	inf := Infer([]category.ID{category.Run})
	if inf.Sport != SportRunning || inf.SubSport != SubGeneric {
		t.Errorf("got %+v, want running/generic", inf)
	}
}

func TestInferCardioPresent(t *testing.T) {
	inf := Infer([]category.ID{category.BenchPress, category.Cardio})
	if inf.Sport != SportTraining || inf.SubSport != SubCardioTraining {
		t.Errorf("got %+v, want training/cardio_training", inf)
	}
}

func TestInferRunningPlusStrengthIsCardioTraining(t *testing.T) {
	inf := Infer([]category.ID{category.Run, category.Squat})
	if inf.Sport != SportTraining || inf.SubSport != SubCardioTraining {
		t.Errorf("got %+v, want training/cardio_training", inf)
	}
}

func TestInferStrengthOnly(t *testing.T) {
	inf := Infer([]category.ID{category.Squat, category.BenchPress, category.Row})
	if inf.Sport != SportTraining || inf.SubSport != SubStrengthTraining {
		t.Errorf("got %+v, want training/strength_training", inf)
	}
}

func TestInferNeverReturnsFitnessEquipmentSport(t *testing.T) {
	cases := [][]category.ID{
		{category.Run},
		{category.Cardio},
		{category.Squat},
		{},
	}
	for _, c := range cases {
		inf := Infer(c)
		if inf.Sport == 4 {
			t.Errorf("Infer(%v) returned forbidden sport_id=4 (fitness_equipment)", c)
		}
	}
}

func TestForced(t *testing.T) {
	inf := Forced(SportRunning, SubGeneric)
	if inf.Sport != SportRunning || inf.SubSport != SubGeneric {
		t.Errorf("got %+v", inf)
	}
}
