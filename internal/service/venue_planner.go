package service

import (
	"sort"

	pkgerrors "placement-portal/backend/pkg/errors"
)

// PlannerVenue 参与分配的场地（调用方已过滤为 assigned 状态）
type PlannerVenue struct {
	VenueID  string
	Name     string
	Capacity int
}

// VenueAllocation 单个场地的分配结果
// Offset 为该场地第一个学生在原始学生列表中的下标
type VenueAllocation struct {
	VenueID    string
	Name       string
	Capacity   int
	Offset     int
	StudentIDs []string
}

// VenueAssignmentPlan 场地分配方案
type VenueAssignmentPlan struct {
	Allocations     []VenueAllocation
	UnassignedCount int
	Unassigned      []string
}

// AssignedCount 已分配学生总数
func (p *VenueAssignmentPlan) AssignedCount() int {
	n := 0
	for _, a := range p.Allocations {
		n += len(a.StudentIDs)
	}
	return n
}

// PlanVenueAssignment 按场地名称升序依次填满容量，学生保持原始顺序。
// 重复的学生 ID 不去重，各自占用一个座位。
func PlanVenueAssignment(venues []PlannerVenue, studentIDs []string) (*VenueAssignmentPlan, error) {
	for _, v := range venues {
		if v.Capacity <= 0 {
			return nil, pkgerrors.NewValidationError("capacity", "场地 %q 的容量必须为正整数，实际为 %d", v.Name, v.Capacity)
		}
	}

	sorted := make([]PlannerVenue, len(venues))
	copy(sorted, venues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	plan := &VenueAssignmentPlan{
		Allocations: make([]VenueAllocation, 0, len(sorted)),
	}

	next := 0
	for _, v := range sorted {
		end := next + v.Capacity
		if end > len(studentIDs) {
			end = len(studentIDs)
		}
		ids := make([]string, end-next)
		copy(ids, studentIDs[next:end])

		plan.Allocations = append(plan.Allocations, VenueAllocation{
			VenueID:    v.VenueID,
			Name:       v.Name,
			Capacity:   v.Capacity,
			Offset:     next,
			StudentIDs: ids,
		})
		next = end
	}

	plan.Unassigned = make([]string, len(studentIDs)-next)
	copy(plan.Unassigned, studentIDs[next:])
	plan.UnassignedCount = len(plan.Unassigned)

	return plan, nil
}
