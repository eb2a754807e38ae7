package main

import (
	"context"
	"fmt"
)

// recalculateGPA refreshes the standing of one student, or of every student when id is empty.
func (cli *commandLine) recalculateGPA(id string) error {
	ctx := context.Background()
	if id == "" {
		n, err := cli.ledgerSvc.RecalculateAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "recalculated %d students\n", n)
		return nil
	}

	st, err := cli.ledgerSvc.RecalculateGPA(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: gpa=%.2f credits=%d\n", st.StudentID, st.GPA, st.TotalCredits)
	return nil
}
