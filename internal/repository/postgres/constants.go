package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	errProjectNotFound = "project not found"
	errPaymentNotFound = "payment not found"
	errAssetNotFound   = "asset not found"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"

	errFailedStartTransactionFmt  = "failed to start transaction: %w"
	errFailedCommitTransactionFmt = "failed to commit transaction: %w"
	errFailedSetActorFmt          = "failed to set row-level actor: %w"

	errFailedCreatePaymentFmt   = "failed to create payment: %w"
	errFailedGetPaymentFmt      = "failed to get payment: %w"
	errFailedListPaymentsFmt    = "failed to list payments: %w"
	errFailedScanPaymentFmt     = "failed to scan payment: %w"
	errFailedUpdatePaymentFmt   = "failed to update payment status: %w"
	errPaymentIntentRequiredFmt = "gateway intent id is required"

	errFailedCreateProjectFmt = "failed to create project: %w"
	errFailedGetProjectFmt    = "failed to get project: %w"
	errFailedUpdateProjectFmt = "failed to update project status: %w"

	errFailedListAdminsFmt = "failed to list admin users: %w"
	errFailedScanUserFmt   = "failed to scan user: %w"

	errFailedInsertNotificationFmt = "failed to insert notification: %w"
	errFailedListNotificationsFmt  = "failed to list notifications: %w"
	errFailedScanNotificationFmt   = "failed to scan notification: %w"

	errFailedListAssetsFmt  = "failed to list assets: %w"
	errFailedScanAssetFmt   = "failed to scan asset: %w"
	errFailedDeleteAssetFmt = "failed to delete asset: %w"
)

var (
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }

	errFailedStartTransaction  = func(err error) error { return fmt.Errorf(errFailedStartTransactionFmt, err) }
	errFailedCommitTransaction = func(err error) error { return fmt.Errorf(errFailedCommitTransactionFmt, err) }
	errFailedSetActor          = func(err error) error { return fmt.Errorf(errFailedSetActorFmt, err) }

	errFailedCreatePayment = func(err error) error { return fmt.Errorf(errFailedCreatePaymentFmt, err) }
	errFailedGetPayment    = func(err error) error { return fmt.Errorf(errFailedGetPaymentFmt, err) }
	errFailedListPayments  = func(err error) error { return fmt.Errorf(errFailedListPaymentsFmt, err) }
	errFailedScanPayment   = func(err error) error { return fmt.Errorf(errFailedScanPaymentFmt, err) }
	errFailedUpdatePayment = func(err error) error { return fmt.Errorf(errFailedUpdatePaymentFmt, err) }

	errFailedCreateProject = func(err error) error { return fmt.Errorf(errFailedCreateProjectFmt, err) }
	errFailedGetProject    = func(err error) error { return fmt.Errorf(errFailedGetProjectFmt, err) }
	errFailedUpdateProject = func(err error) error { return fmt.Errorf(errFailedUpdateProjectFmt, err) }

	errFailedListAdmins = func(err error) error { return fmt.Errorf(errFailedListAdminsFmt, err) }
	errFailedScanUser   = func(err error) error { return fmt.Errorf(errFailedScanUserFmt, err) }

	errFailedInsertNotification = func(err error) error { return fmt.Errorf(errFailedInsertNotificationFmt, err) }
	errFailedListNotifications  = func(err error) error { return fmt.Errorf(errFailedListNotificationsFmt, err) }
	errFailedScanNotification   = func(err error) error { return fmt.Errorf(errFailedScanNotificationFmt, err) }

	errFailedListAssets  = func(err error) error { return fmt.Errorf(errFailedListAssetsFmt, err) }
	errFailedScanAsset   = func(err error) error { return fmt.Errorf(errFailedScanAssetFmt, err) }
	errFailedDeleteAsset = func(err error) error { return fmt.Errorf(errFailedDeleteAssetFmt, err) }
)
