package errors

import "fmt"

type ErrChallengeExist struct {
	ID    string
	Exist bool
}

func (err ErrChallengeExist) Error() string {
	if err.Exist {
		return fmt.Sprintf("challenge %s already exist", err.ID)
	}
	return fmt.Sprintf("challenge %s does not exist", err.ID)
}

type ErrDeploymentExist struct {
	ChallengeID string
	Identity    string
	Exist       bool
}

func (err ErrDeploymentExist) Error() string {
	if err.Exist {
		return fmt.Sprintf("deployment of challenge %s and identity %s already exist", err.ChallengeID, err.Identity)
	}
	return fmt.Sprintf("deployment of challenge %s and identity %s does not exist", err.ChallengeID, err.Identity)
}
