package seed

import (
	"fmt"
	"time"

	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
)

// Run 在动作库为空时填充演示数据：一组常见动作、Push/Pull/Legs 三个模板，
// 以及最近几天的卧推/深蹲训练记录。已存在数据时为空操作
func Run(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&db.Movement{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count movements: %w", err)
	}
	if count > 0 {
		return nil
	}

	movements := []struct {
		name string
		tags []string
	}{
		{"Barbell Bench Press", []string{"Chest", "Barbell"}},
		{"Back Squat", []string{"Quads", "Barbell"}},
		{"Conventional Deadlift", []string{"Back", "Barbell"}},
		{"Incline DB Press", []string{"Chest", "Dumbbell"}},
		{"Triceps Pushdown", []string{"Triceps", "Cable"}},
		{"Barbell Row", []string{"Back", "Barbell"}},
		{"Lat Pulldown", []string{"Back", "Machine"}},
		{"Leg Press", []string{"Quads", "Machine"}},
		{"Leg Curl", []string{"Hamstrings", "Machine"}},
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		byName := make(map[string]uint, len(movements))
		for _, item := range movements {
			tags := make([]db.Tag, 0, len(item.tags))
			for _, name := range item.tags {
				var tag db.Tag
				if err := tx.Where("name = ?", name).
					FirstOrCreate(&tag, db.Tag{Name: name}).Error; err != nil {
					return fmt.Errorf("ensure tag %s: %w", name, err)
				}
				tags = append(tags, tag)
			}

			movement := db.Movement{Name: item.name, Tags: tags}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("create movement %s: %w", item.name, err)
			}
			byName[item.name] = movement.ID
		}

		templates := []struct {
			name      string
			color     string
			movements []string
		}{
			{"Push", "#FF6B6B", []string{"Barbell Bench Press", "Incline DB Press", "Triceps Pushdown"}},
			{"Pull", "#4D96FF", []string{"Conventional Deadlift", "Barbell Row", "Lat Pulldown"}},
			{"Legs", "#6BCB77", []string{"Back Squat", "Leg Press", "Leg Curl"}},
		}

		for _, item := range templates {
			template := db.WorkoutTemplate{Name: item.name, ColorHex: item.color}
			if err := tx.Create(&template).Error; err != nil {
				return fmt.Errorf("create template %s: %w", item.name, err)
			}
			for position, movementName := range item.movements {
				ref := db.TemplateMovement{
					WorkoutTemplateID: template.ID,
					MovementID:        byName[movementName],
					Position:          position,
				}
				if err := tx.Create(&ref).Error; err != nil {
					return fmt.Errorf("create template movement: %w", err)
				}
			}
		}

		// 最近几天的示例训练记录
		now := time.Now()
		benchWeights := []float64{135, 155, 175}
		benchReps := []int{12, 10, 8}
		squatWeights := []float64{225, 245}
		squatReps := []int{10, 8}

		for _, offset := range []int{-5, -3, -1} {
			date := now.AddDate(0, 0, offset)
			day := db.WorkoutDay{
				Date: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
			}
			if err := tx.Create(&day).Error; err != nil {
				return fmt.Errorf("create workout day: %w", err)
			}

			bench := db.WorkoutMovement{WorkoutDayID: day.ID, MovementID: byName["Barbell Bench Press"]}
			if err := tx.Create(&bench).Error; err != nil {
				return fmt.Errorf("create bench record: %w", err)
			}
			for i := range benchWeights {
				set := db.SetEntry{
					WorkoutMovementID: bench.ID,
					Weight:            benchWeights[i],
					Reps:              benchReps[i],
					Timestamp:         date.Add(time.Duration(i) * time.Minute),
				}
				if err := tx.Create(&set).Error; err != nil {
					return fmt.Errorf("create bench set: %w", err)
				}
			}

			squat := db.WorkoutMovement{WorkoutDayID: day.ID, MovementID: byName["Back Squat"]}
			if err := tx.Create(&squat).Error; err != nil {
				return fmt.Errorf("create squat record: %w", err)
			}
			for i := range squatWeights {
				set := db.SetEntry{
					WorkoutMovementID: squat.ID,
					Weight:            squatWeights[i],
					Reps:              squatReps[i],
					Timestamp:         date.Add(time.Duration(5+i) * time.Minute),
				}
				if err := tx.Create(&set).Error; err != nil {
					return fmt.Errorf("create squat set: %w", err)
				}
			}
		}

		return nil
	})
}
