package alarmsub

import (
	"context"
	"fmt"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/felipevillazon/xelips/internal/nodeid"
	"github.com/felipevillazon/xelips/internal/registry"
)

// Sampling interval and monitored-item queue size are fixed, not
// configurable per deployment.
const (
	samplingIntervalMillis = 100.0
	monitoredItemQueueSize = 10
)

// Subscribe creates one OPC UA subscription over client with the given
// publishing interval, and monitored items for every node the alarm
// mappings reference: severity and ack always, the optional fields
// only when their node is present. Monitored-item creation failures
// are logged per item and do not abort the subscription. The returned
// function stops the background notification consumer.
func (e *Engine) Subscribe(
	ctx context.Context,
	client *opcua.Client,
	publishingInterval time.Duration,
	mappings []registry.AlarmMapping,
) (stop func(), err error) {
	notifyCh := make(chan *opcua.PublishNotificationData, 64)

	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{Interval: publishingInterval}, notifyCh)
	if err != nil {
		return nil, fmt.Errorf("alarmsub: create subscription: %w", err)
	}

	handleToNode := make(map[uint32]string)
	var nextHandle uint32

	register := func(id nodeid.NodeID) *ua.MonitoredItemCreateRequest {
		nextHandle++
		handle := nextHandle
		handleToNode[handle] = id.String()

		req := opcua.NewMonitoredItemCreateRequestWithDefaults(
			ua.NewNumericNodeID(id.Namespace, id.Identifier),
			ua.AttributeIDValue,
			handle,
		)
		req.RequestedParameters.SamplingInterval = samplingIntervalMillis
		req.RequestedParameters.QueueSize = monitoredItemQueueSize
		return req
	}

	var requests []*ua.MonitoredItemCreateRequest
	for _, m := range mappings {
		requests = append(requests, register(m.Severity), register(m.Ack))
		if m.ErrorCode != nil {
			requests = append(requests, register(*m.ErrorCode))
		}
		if m.Value != nil {
			requests = append(requests, register(*m.Value))
		}
		if m.SystemState != nil {
			requests = append(requests, register(*m.SystemState))
		}
	}

	for _, req := range requests {
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnNeither, req)
		if err != nil {
			e.logger.Error("alarmsub: monitored item creation failed", "error", err)
			continue
		}
		if res != nil && len(res.Results) > 0 && res.Results[0].StatusCode != ua.StatusOK {
			e.logger.Error("alarmsub: monitored item rejected", "status", res.Results[0].StatusCode)
		}
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	go e.consume(consumeCtx, notifyCh, handleToNode)

	return cancel, nil
}

func (e *Engine) consume(ctx context.Context, notifyCh chan *opcua.PublishNotificationData, handleToNode map[uint32]string) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-notifyCh:
			if !ok {
				return
			}
			if notif.Error != nil {
				e.logger.Error("alarmsub: publish notification error", "error", notif.Error)
				continue
			}
			dcn, ok := notif.Value.(*ua.DataChangeNotification)
			if !ok {
				continue
			}
			for _, item := range dcn.MonitoredItems {
				nodeText, ok := handleToNode[uint32(item.ClientHandle)]
				if !ok || item.Value == nil || item.Value.Value == nil {
					continue
				}
				e.HandleChange(ctx, nodeText, item.Value.Value.Value())
			}
		}
	}
}
