package csvio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/internal/service"
)

func TestMarshalReport(t *testing.T) {
	report := service.ConstraintReport{Violations: []service.Violation{
		{Kind: service.ViolationSplitPair, Subject: "5a-D", Detail: "day 2 has a split pair"},
	}}

	out, err := MarshalReport(report, 0)
	require.NoError(t, err)
	assert.Equal(t, "art;betrifft;details\nsplit_pair;5a-D;day 2 has a split pair\n", string(out))

	out, err = MarshalReport(service.ConstraintReport{}, ',')
	require.NoError(t, err)
	assert.Equal(t, "art,betrifft,details\n", string(out))
}

func TestMarshalTeacherLoad(t *testing.T) {
	teacher := models.NewTeacher(1, "M", "D")
	teacher.Abbreviation = "MUE"
	teacher.Claim(&models.Course{Hours: 4})

	out, err := MarshalTeacherLoad(&service.GenerationResult{Timetable: &models.Timetable{Teachers: []*models.Teacher{teacher}}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "kuerzel;faecher;kurse;stunden\nMUE;D,M;1;4\n", string(out))
}
