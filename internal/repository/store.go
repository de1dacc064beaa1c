package repository

import (
	"github.com/paiban/replacement/pkg/compliance"
	"github.com/paiban/replacement/pkg/ranking"
	"github.com/paiban/replacement/pkg/workload"
)

// Store 组合各仓储，作为排序服务、合规检测与聚合器的数据源
type Store struct {
	*ShiftRepository
	*EmployeeRepository
	*WorkloadRepository
	*ViolationRepository
}

var (
	_ ranking.Store             = (*Store)(nil)
	_ compliance.Store          = (*Store)(nil)
	_ workload.AssignmentReader = (*Store)(nil)
	_ compliance.AssignmentFeed = (*Store)(nil)
)

// NewStore 创建组合仓储
func NewStore(db DB) *Store {
	return &Store{
		ShiftRepository:     NewShiftRepository(db),
		EmployeeRepository:  NewEmployeeRepository(db),
		WorkloadRepository:  NewWorkloadRepository(db),
		ViolationRepository: NewViolationRepository(db),
	}
}
