// Package queue is the durable work-queue collaborator: market-update jobs
// are pushed by the schedulers and popped by whichever worker currently holds
// an egress lease. SQS carries the queue; nothing here does coordination.
package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Verify *sqs.Client implements SQSClient at compile time
var _ SQSClient = (*sqs.Client)(nil)

// Job is one unit of queued work.
type Job struct {
	ID            string
	Body          string
	ReceiptHandle *string
}

type Handler func(ctx context.Context, job *Job) error

// Queue wraps one SQS queue with push / pop-with-timeout / drain semantics.
type Queue struct {
	client   SQSClient
	queueURL string
	waitSec  int32
}

func New(client SQSClient, queueURL string, waitSec int32) *Queue {
	return &Queue{
		client:   client,
		queueURL: queueURL,
		waitSec:  waitSec,
	}
}

// Push enqueues a job body.
func (q *Queue) Push(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &q.queueURL,
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// Pop long-polls for one job, waiting up to the configured timeout.
// It returns nil when the queue stayed empty.
func (q *Queue) Pop(ctx context.Context) (*Job, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.queueURL,
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     q.waitSec,
	})
	if err != nil {
		return nil, fmt.Errorf("pop: %w", err)
	}

	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	return &Job{
		ID:            aws.ToString(msg.MessageId),
		Body:          aws.ToString(msg.Body),
		ReceiptHandle: msg.ReceiptHandle,
	}, nil
}

// Ack removes a processed job from the queue.
func (q *Queue) Ack(ctx context.Context, job *Job) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.queueURL,
		ReceiptHandle: job.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// ProcessOne pops a single job and runs handler on it, acking only on
// success so a failed job becomes visible again after its timeout.
func (q *Queue) ProcessOne(ctx context.Context, handler Handler) error {
	job, err := q.Pop(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	if err := handler(ctx, job); err != nil {
		return fmt.Errorf("handler: %w", err)
	}

	return q.Ack(ctx, job)
}

// Drain iterates jobs through handler until the queue is observed empty or
// ctx is cancelled.
func (q *Queue) Drain(ctx context.Context, handler Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := q.Pop(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		if err := handler(ctx, job); err != nil {
			return fmt.Errorf("handler: %w", err)
		}
		if err := q.Ack(ctx, job); err != nil {
			return err
		}
	}
}
