// Package eventhub turns typed events into persisted notifications and push
// bodies.
//
// An event is emitted for one recipient through a Hub. The hub validates the
// event against the closed set of event types and their payload variants,
// runs the in-process subscribers registered for the type and, unless abuse
// control denies it, enqueues it in a Pipeline.
//
// The pipeline collects events into batches and fans each batch out in
// stages: origin block lists are loaded, the Factory builds notification
// records which are inserted or merged into their group, unseen badges are
// counted, devices are loaded and the Assembler renders one push body per
// device for the Pusher.
//
// Basic usage:
//
//	repo := notifications.NewRepository(store, directory)
//	pusher := push.New(push.WithEndpoint(url))
//	pipeline := eventhub.NewPipeline(repo, pusher)
//	hub, err := eventhub.NewHub(pipeline)
//	if err != nil {
//		return err
//	}
//
//	err = hub.Emit(ctx, recipientID, eventhub.AccountFollow, eventhub.FollowPayload{
//		Follower: &notifications.Account{ID: followerID, Username: "vee"},
//	})
//
// Delivery is best effort. Storage and gateway failures are logged and the
// emitter's future still resolves without error.
package eventhub
