package service

// ChangeNotifier broadcasts configuration-change events (rule, holiday,
// extension mutations) so admin dashboards and external read-through caches
// learn about invalidation. A nil notifier is a no-op.
type ChangeNotifier interface {
	NotifyConfigChange(entityType, entityID, action string)
}

func notifyChange(n ChangeNotifier, entityType, entityID, action string) {
	if n != nil {
		n.NotifyConfigChange(entityType, entityID, action)
	}
}
