package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"dorm/internal/core"
)

type demoStudent struct {
	id, name, birthPlace, room, floor string
	department                        core.Department
	level                             core.StudyLevel
	start                             core.Date
}

var demoRoster = []demoStudent{
	{"1", "أحمد محمد علي", "الرياض", "101", "1", core.DeptEngineering, core.LevelThird, core.NewDate(2023, 9, 1)},
	{"2", "سارة جونسون", "نيويورك", "205", "2", core.DeptMedicine, core.LevelFifth, core.NewDate(2023, 8, 15)},
	{"3", "فاطمة أحمد الزهراني", "جدة", "312", "3", core.DeptArts, core.LevelSecond, core.NewDate(2023, 9, 10)},
	{"4", "مايكل تشين", "لوس أنجلوس", "108", "1", core.DeptScience, core.LevelFourth, core.NewDate(2023, 7, 20)},
	{"5", "عبدالله سعد القحطاني", "الدمام", "220", "2", core.DeptBusiness, core.LevelFirst, core.NewDate(2023, 8, 1)},
}

// DemoStudents returns the five demo students with a monthly payment history
// from their start date up to now. Roughly four in five months are paid,
// amounts fall in [200, 700) and nine in ten payments are confirmed. The same
// seed always produces the same history.
func DemoStudents(now time.Time, seed uint64) []core.Student {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]core.Student, 0, len(demoRoster))
	for _, d := range demoRoster {
		out = append(out, core.Student{
			ID:          d.id,
			Name:        d.name,
			Department:  d.department,
			StudyLevel:  d.level,
			BirthPlace:  d.birthPlace,
			RoomNumber:  d.room,
			FloorNumber: d.floor,
			DateAdded:   d.start,
			Payments:    paymentHistory(rng, d.start, now),
		})
	}
	return out
}

func paymentHistory(rng *rand.Rand, start core.Date, now time.Time) []core.Payment {
	payments := []core.Payment{}
	next := 1
	for i := 0; ; i++ {
		day := core.Date{Time: start.AddDate(0, i, 0)}
		if day.After(now) {
			break
		}
		if rng.Float64() <= 0.2 {
			continue
		}
		p := core.NewPayment("payment-"+strconv.Itoa(next), core.MoneyFromUnits(int64(rng.IntN(500)+200)), day)
		p.Confirmed = rng.Float64() > 0.1
		payments = append(payments, p)
		next++
	}
	return payments
}

var (
	ErrDuplicateStudentID = errors.New("duplicate student id")
	ErrDuplicatePaymentID = errors.New("duplicate payment id")
	ErrInvalidPayment     = errors.New("invalid payment")
)

// LoadSeedFile reads a JSON array of students.
//
// Student ids and payment ids must be unique across the file. Each payment's
// month and year are derived from its date, whatever the file says.
func LoadSeedFile(path string) ([]core.Student, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var students []core.Student
	if err := json.Unmarshal(b, &students); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	if err := normalizeSeed(students); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return students, nil
}

func normalizeSeed(students []core.Student) error {
	studentIDs := make(map[string]struct{}, len(students))
	paymentIDs := make(map[string]struct{})
	for i := range students {
		st := &students[i]
		if _, dup := studentIDs[st.ID]; dup || st.ID == "" {
			return fmt.Errorf("%w: %q", ErrDuplicateStudentID, st.ID)
		}
		studentIDs[st.ID] = struct{}{}

		if st.Payments == nil {
			st.Payments = []core.Payment{}
		}
		for j := range st.Payments {
			p := &st.Payments[j]
			if _, dup := paymentIDs[p.ID]; dup || p.ID == "" {
				return fmt.Errorf("%w: %q", ErrDuplicatePaymentID, p.ID)
			}
			paymentIDs[p.ID] = struct{}{}

			if p.Date.IsZero() {
				return fmt.Errorf("%w %q: missing date", ErrInvalidPayment, p.ID)
			}
			if err := p.Amount.Validate(); err != nil {
				return fmt.Errorf("%w %q: %w", ErrInvalidPayment, p.ID, err)
			}
			p.Month = p.Date.Month().String()
			p.Year = p.Date.Year()
		}
	}
	return nil
}
