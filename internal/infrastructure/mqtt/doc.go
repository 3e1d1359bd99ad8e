// Package mqtt publishes reconciliation reports to an MQTT broker.
//
// The client only publishes. It keeps a retained online/offline status on
// the system topic, backed by a Last Will so a crash still flips it to
// offline, and reconnects on its own.
//
// # Topics
//
//	assetsync/system/status                    retained online/offline status
//	assetsync/reconcile/{class}/{serial}       one message per handled event
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.Reconcile("network_attached", "103441045"), report, false)
package mqtt
