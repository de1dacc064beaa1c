package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paiban/replacement/internal/jobs"
	"github.com/paiban/replacement/pkg/errors"
	"github.com/paiban/replacement/pkg/logger"
	"github.com/paiban/replacement/pkg/model"
)

func migrateCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据库表结构",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app().DB.Migrate(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "数据库迁移完成")
			return nil
		},
	}
}

func recomputeCmd(app func() *App) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "立即执行一次工作量快照任务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != jobs.JobDaily && mode != jobs.JobWeekly {
				return errors.InvalidInput("mode", "必须为 daily 或 weekly")
			}

			report, err := app().Scheduler.Trigger(commandContext(cmd), mode)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", jobs.JobDaily, "任务类型: daily|weekly")
	return cmd
}

func rankCmd(app func() *App) *cobra.Command {
	var shiftArg, absentArg string

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "为缺勤员工的班次计算替班候选人排序",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID, err := parseID("shift", shiftArg)
			if err != nil {
				return err
			}
			absentID, err := parseID("absent", absentArg)
			if err != nil {
				return err
			}

			result, err := app().Ranking.RankCandidates(commandContext(cmd), shiftID, absentID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if len(result.Candidates) == 0 {
				return errors.New(errors.CodeNoCandidates, "没有可用的替班候选人")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shiftArg, "shift", "", "班次ID")
	cmd.Flags().StringVar(&absentArg, "absent", "", "缺勤员工ID")
	_ = cmd.MarkFlagRequired("shift")
	_ = cmd.MarkFlagRequired("absent")
	return cmd
}

func checkCmd(app func() *App) *cobra.Command {
	var (
		assignmentArg string
		record        bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "对单条班次分配执行合规检查",
		Long:  "默认只输出当前的违规情况；--record 时按队列的方式记录违规并标记该分配已检查。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assignmentID, err := parseID("assignment", assignmentArg)
			if err != nil {
				return err
			}

			detector := app().Detector
			var violations []model.ComplianceViolation
			if record {
				violations = detector.Check(commandContext(cmd), assignmentID)
			} else if violations, err = detector.Inspect(commandContext(cmd), assignmentID); err != nil {
				return err
			}

			logger.Info().
				Str("assignment_id", assignmentID.String()).
				Int("violations", len(violations)).
				Msg("合规检查完成")
			return printJSON(cmd, violations)
		},
	}

	cmd.Flags().StringVar(&assignmentArg, "assignment", "", "班次分配ID")
	cmd.Flags().BoolVar(&record, "record", false, "记录违规并标记为已检查")
	_ = cmd.MarkFlagRequired("assignment")
	return cmd
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.InvalidInput(field, "不是有效的UUID")
	}
	return id, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
