// Package contract implements the on-chain variant of the exam audit
// trail. Ordering and immutability come from the channel itself; the
// contract only validates inputs and shapes the records. The gateway's
// relational ledger backend mirrors this contract's event log off-chain.
package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	auditObjectType = "AuditLog"
	userObjectType  = "ExamUser"

	maxFieldLength = 256
)

// AuditContract manages exam users and their audit log on the channel.
type AuditContract struct {
	contractapi.Contract
}

// AuditLog is one recorded authentication or monitoring event.
type AuditLog struct {
	Index     uint64 `json:"index"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// ExamUser is the minimal on-chain identity record. Biometric material
// never leaves the gateway; the chain keeps only the registration fact.
type ExamUser struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"`
}

const counterKey = "auditlog~counter"

// RegisterUser records a newly enrolled exam user. Re-registering an
// existing id is rejected.
func (c *AuditContract) RegisterUser(ctx contractapi.TransactionContextInterface, userID, name, role string) error {
	if err := validateField("userID", userID); err != nil {
		return err
	}
	if err := validateField("name", name); err != nil {
		return err
	}
	if role != "admin" && role != "student" {
		return fmt.Errorf("invalid role %q", role)
	}

	key, err := ctx.GetStub().CreateCompositeKey(userObjectType, []string{userID})
	if err != nil {
		return fmt.Errorf("create user key: %w", err)
	}
	existing, err := ctx.GetStub().GetState(key)
	if err != nil {
		return fmt.Errorf("read user: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("user %q already registered", userID)
	}

	user := ExamUser{
		UserID:       userID,
		Name:         name,
		Role:         role,
		RegisteredAt: txTime(ctx),
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return ctx.GetStub().PutState(key, raw)
}

// AddAuditLog appends one event to the trail. The index comes from a
// monotonic counter so off-chain readers can detect gaps.
func (c *AuditContract) AddAuditLog(ctx contractapi.TransactionContextInterface, actorID, action, status, source string) error {
	for name, v := range map[string]string{"actorID": actorID, "action": action, "status": status} {
		if err := validateField(name, v); err != nil {
			return err
		}
	}

	index, err := c.nextIndex(ctx)
	if err != nil {
		return err
	}

	entry := AuditLog{
		Index:     index,
		ActorID:   actorID,
		Action:    action,
		Status:    status,
		Source:    source,
		Timestamp: txTime(ctx),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}

	key, err := ctx.GetStub().CreateCompositeKey(auditObjectType, []string{fmt.Sprintf("%020d", index)})
	if err != nil {
		return fmt.Errorf("create audit key: %w", err)
	}
	if err := ctx.GetStub().PutState(key, raw); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return ctx.GetStub().SetEvent("AuditLogAdded", raw)
}

// GetAuditLogs returns the whole trail in append order.
func (c *AuditContract) GetAuditLogs(ctx contractapi.TransactionContextInterface) ([]*AuditLog, error) {
	iter, err := ctx.GetStub().GetStateByPartialCompositeKey(auditObjectType, nil)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer iter.Close()

	logs := []*AuditLog{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate audit logs: %w", err)
		}
		var entry AuditLog
		if err := json.Unmarshal(kv.Value, &entry); err != nil {
			return nil, fmt.Errorf("decode audit log: %w", err)
		}
		logs = append(logs, &entry)
	}
	return logs, nil
}

// GetUserAuditLogs filters the trail for one actor.
func (c *AuditContract) GetUserAuditLogs(ctx contractapi.TransactionContextInterface, actorID string) ([]*AuditLog, error) {
	all, err := c.GetAuditLogs(ctx)
	if err != nil {
		return nil, err
	}
	logs := []*AuditLog{}
	for _, entry := range all {
		if entry.ActorID == actorID {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

func (c *AuditContract) nextIndex(ctx contractapi.TransactionContextInterface) (uint64, error) {
	raw, err := ctx.GetStub().GetState(counterKey)
	if err != nil {
		return 0, fmt.Errorf("read audit counter: %w", err)
	}
	var index uint64
	if raw != nil {
		index, err = strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse audit counter: %w", err)
		}
	}
	if err := ctx.GetStub().PutState(counterKey, []byte(strconv.FormatUint(index+1, 10))); err != nil {
		return 0, fmt.Errorf("write audit counter: %w", err)
	}
	return index, nil
}

// txTime uses the transaction timestamp so every endorser computes the
// same value.
func txTime(ctx contractapi.TransactionContextInterface) string {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return ""
	}
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC().Format(time.RFC3339)
}

func validateField(name, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", name)
	}
	if len(v) > maxFieldLength {
		return fmt.Errorf("%s exceeds %d characters", name, maxFieldLength)
	}
	return nil
}
