package points

// PolicyType enumerates the distribution rule kinds.
type PolicyType string

const (
	PolicyNotLate        PolicyType = "NOT_LATE"
	PolicyOvertime       PolicyType = "OVERTIME"
	PolicyFullAttendance PolicyType = "FULL_ATTENDANCE"
)

// Policy is one active distribution rule of a program. Read-only from the
// ledger's perspective.
type Policy struct {
	PolicyID      string
	ProgramID     ProgramID
	Type          PolicyType
	UnitValue     int64
	PointsPerUnit int64
	Active        bool
}

// achievedValueByPolicyType maps each policy kind to the pure function
// extracting its achieved value from the statistics.
var achievedValueByPolicyType = map[PolicyType]func(Statistics) int64{
	PolicyNotLate: func(statistics Statistics) int64 {
		return statistics.TotalDays - statistics.LateDays
	},
	PolicyOvertime: func(statistics Statistics) int64 {
		return statistics.TotalOvertimeMinutes
	},
	PolicyFullAttendance: func(statistics Statistics) int64 {
		if statistics.MorningPresentDays < statistics.AfternoonPresentDays {
			return statistics.MorningPresentDays
		}
		return statistics.AfternoonPresentDays
	},
}

// PointsFor converts statistics into points for this policy:
// floor(achievedValue / unitValue) * pointsPerUnit. Unknown policy types and
// non-positive achieved values yield zero.
func (policy Policy) PointsFor(statistics Statistics) int64 {
	if policy.UnitValue <= 0 || policy.PointsPerUnit <= 0 {
		return 0
	}
	achievedValueFn, known := achievedValueByPolicyType[policy.Type]
	if !known {
		return 0
	}
	achievedValue := achievedValueFn(statistics)
	if achievedValue <= 0 {
		return 0
	}
	unitsAchieved := achievedValue / policy.UnitValue
	return unitsAchieved * policy.PointsPerUnit
}
