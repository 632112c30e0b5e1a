package informix

import (
	"context"
	"fmt"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/inspector"
)

// routineName carries a version suffix; bump it whenever fkPartsBody
// changes so existing databases get the new body.
const routineName = "schemascope_fk_parts_v3"

// fkPartsBody returns one row per foreign-key part. Informix exposes key
// parts only through the packed sysindices.indexkeys value, so the
// expansion walks positions 0..15 with ikeyextractcolno and stops at the
// first empty part.
const fkPartsBody = `CREATE FUNCTION ` + routineName + `()
	RETURNING VARCHAR(128) AS tabname,
	          VARCHAR(128) AS colname,
	          VARCHAR(128) AS reftabname,
	          VARCHAR(128) AS refcolname,
	          VARCHAR(128) AS constrname,
	          SMALLINT     AS keypos,
	          CHAR(1)      AS updrule,
	          CHAR(1)      AS delrule;

	DEFINE l_constrname VARCHAR(128);
	DEFINE l_dtabname   VARCHAR(128);
	DEFINE l_ptabname   VARCHAR(128);
	DEFINE l_dtabid     LIKE systables.tabid;
	DEFINE l_ptabid     LIKE systables.tabid;
	DEFINE l_dindexkeys LIKE sysindices.indexkeys;
	DEFINE l_pindexkeys LIKE sysindices.indexkeys;
	DEFINE l_dcolno     LIKE syscolumns.colno;
	DEFINE l_pcolno     LIKE syscolumns.colno;
	DEFINE l_dcolname   VARCHAR(128);
	DEFINE l_pcolname   VARCHAR(128);
	DEFINE l_updrule    CHAR(1);
	DEFINE l_delrule    CHAR(1);
	DEFINE l_keyid      SMALLINT;

	FOREACH
		SELECT  TRIM(dc.constrname),
		        TRIM(dt.tabname), dt.tabid, di.indexkeys,
		        TRIM(pt.tabname), pt.tabid, pi.indexkeys,
		        dr.updrule, dr.delrule
		INTO    l_constrname,
		        l_dtabname, l_dtabid, l_dindexkeys,
		        l_ptabname, l_ptabid, l_pindexkeys,
		        l_updrule, l_delrule
		FROM    sysconstraints AS dc
		JOIN    sysobjstate    AS do ON do.name     = dc.constrname AND do.tabid = dc.tabid
		JOIN    systables      AS dt ON dt.tabid    = dc.tabid
		JOIN    sysindices     AS di ON di.idxname  = dc.idxname AND di.tabid = dc.tabid
		JOIN    sysreferences  AS dr ON dr.constrid = dc.constrid
		JOIN    sysconstraints AS pc ON pc.constrid = dr.primary
		JOIN    systables      AS pt ON pt.tabid    = pc.tabid
		JOIN    sysindices     AS pi ON pi.idxname  = pc.idxname AND pi.tabid = pc.tabid
		WHERE   dc.constrtype = 'R'
		AND     do.objtype = 'C'
		AND     do.state = 'E'
		AND     dt.tabid >= 100
		AND     dt.tabname NOT LIKE 'sys%'
		AND     dt.tabname NOT LIKE 'vw%'
		ORDER   BY 2, 1

		FOR l_keyid = 0 TO 15
			LET l_dcolno = ikeyextractcolno(l_dindexkeys, l_keyid);
			IF l_dcolno = 0 THEN
				EXIT FOR;
			END IF;
			LET l_pcolno = ikeyextractcolno(l_pindexkeys, l_keyid);

			SELECT TRIM(colname) INTO l_dcolname
			FROM   syscolumns
			WHERE  tabid = l_dtabid AND colno = l_dcolno;

			SELECT TRIM(colname) INTO l_pcolname
			FROM   syscolumns
			WHERE  tabid = l_ptabid AND colno = l_pcolno;

			RETURN l_dtabname, l_dcolname, l_ptabname, l_pcolname,
			       l_constrname, l_keyid + 1, l_updrule, l_delrule
			WITH RESUME;
		END FOR;
	END FOREACH;
END FUNCTION;`

const (
	routineExistsQuery = `SELECT COUNT(*) FROM sysprocedures WHERE procname = ?`
	dropRoutine        = `DROP FUNCTION IF EXISTS ` + routineName
)

// Provision drops and recreates the foreign-key helper routine. It is safe
// to call repeatedly and from several goroutines; concurrent calls on the
// same Inspector share one round of DDL.
func (i *Inspector) Provision(ctx context.Context) error {
	return i.install(ctx, true)
}

// ensureProvisioned installs the routine on first use when it is absent.
func (i *Inspector) ensureProvisioned(ctx context.Context) error {
	if i.provisioned.Load() {
		return nil
	}
	return i.install(ctx, false)
}

func (i *Inspector) install(ctx context.Context, force bool) error {
	key := "ensure"
	if force {
		key = "force"
	}
	_, err, _ := i.group.Do(key, func() (any, error) {
		if !force {
			if i.provisioned.Load() {
				return nil, nil
			}
			exists, err := inspector.QueryCount(ctx, i.db, routineExistsQuery, routineName)
			if err != nil {
				return nil, err
			}
			if exists {
				i.log.Debugf("helper routine %s already present", routineName)
				i.provisioned.Store(true)
				return nil, nil
			}
		}

		if _, err := i.db.Exec(ctx, dropRoutine); err != nil {
			return nil, errs.Wrap(errs.ErrKindProvisioningFailed,
				fmt.Sprintf("failed to drop helper routine %s", routineName), err)
		}
		if _, err := i.db.Exec(ctx, fkPartsBody); err != nil {
			return nil, errs.Wrap(errs.ErrKindProvisioningFailed,
				fmt.Sprintf("failed to create helper routine %s", routineName), err)
		}

		i.provisioned.Store(true)
		i.log.Infof("provisioned helper routine %s", routineName)
		return nil, nil
	})
	return err
}
